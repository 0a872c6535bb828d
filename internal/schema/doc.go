// Package schema derives field schemas from Go struct types and uses them to
// flatten schema-kind records into field maps and to validate and construct
// them again on decode.
//
// A schema is read from struct tags:
//
//	type Order struct {
//		ID     string    `kv:"id" validate:"required"`
//		Qty    int       `kv:"qty" validate:"gte=1" default:"1"`
//		Placed time.Time `kv:"placed"`
//		Note   string    `kv:"-"`
//	}
//
// Wire names come from the kv tag, then the json tag, then the Go field name.
// A validate tag containing "required" makes the field mandatory on decode;
// a default tag fills it when absent. Validation uses
// github.com/go-playground/validator/v10. Types implementing Constrained add
// CUE constraints that are checked last.
package schema
