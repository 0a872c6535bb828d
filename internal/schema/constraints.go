package schema

import (
	"fmt"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
)

// compileConstraints checks that src is valid CUE.
func compileConstraints(src string) error {
	v := cuecontext.New().CompileString(src)
	return v.Err()
}

// checkConstraints unifies the CUE constraints with the field map and
// reports every violation. A fresh context is used per call since a CUE
// context must not be shared between goroutines.
func checkConstraints(src string, fields map[string]any) []Problem {
	ctx := cuecontext.New()
	schemaVal := ctx.CompileString(src)
	if err := schemaVal.Err(); err != nil {
		return []Problem{{Message: "constraints: " + err.Error()}}
	}
	data := ctx.Encode(fields)
	if err := data.Err(); err != nil {
		return []Problem{{Message: "constraints: " + err.Error()}}
	}

	err := schemaVal.Unify(data).Validate(cue.Concrete(true))
	if err == nil {
		return nil
	}

	var problems []Problem
	for _, e := range errors.Errors(err) {
		format, args := e.Msg()
		problems = append(problems, Problem{
			Field:   strings.Join(e.Path(), "."),
			Message: fmt.Sprintf(format, args...),
		})
	}
	if len(problems) == 0 {
		problems = append(problems, Problem{Message: err.Error()})
	}
	return problems
}
