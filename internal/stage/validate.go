package stage

import (
	"context"
	"fmt"
	"strconv"

	"github.com/lucasnoah/ragdebug/internal/graph"
	"github.com/lucasnoah/ragdebug/internal/pipeline"
)

// SuccessMessage is the validation message for a clean run.
const SuccessMessage = "Return code 0 - likely fixed."

const stderrExcerpt = 1000

// Validate decides whether an execution fixed the problem. It is pure.
func Validate(res *pipeline.ExecutionResult) pipeline.Validation {
	if res != nil && res.Ran && res.ReturnCode == 0 {
		return pipeline.Validation{Success: true, Message: SuccessMessage}
	}

	rc := "none"
	var stderr string
	if res != nil {
		if res.Ran {
			rc = strconv.Itoa(res.ReturnCode)
		}
		stderr = res.Stderr
	}
	if r := []rune(stderr); len(r) > stderrExcerpt {
		stderr = string(r[:stderrExcerpt])
	}
	return pipeline.Validation{
		Success: false,
		Message: fmt.Sprintf("Non-zero return code (%s). stderr excerpt: %s", rc, stderr),
	}
}

func (n *nodes) validate(_ context.Context, st *pipeline.State) (out graph.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			st.Validation = &pipeline.Validation{Success: false, Message: fmt.Sprintf("validator error: %v", r)}
			out = graph.Mutated{}
		}
	}()

	v := Validate(st.ExecutionResult)
	st.Validation = &v
	n.logf("validation: %s", v.Message)
	return graph.Mutated{}
}
