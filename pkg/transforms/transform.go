package transforms

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/travigo/livetrains/pkg/ctdf"
)

// TransformDefinition overrides record fields on every record matching When.
// An empty When matches everything.
type TransformDefinition struct {
	Name string            `yaml:"name"`
	When string            `yaml:"when"`
	Set  map[string]string `yaml:"set"`

	program *vm.Program
}

var settableFields = map[string]func(record *ctdf.TrainRecord, value string){
	"operator":    func(r *ctdf.TrainRecord, v string) { r.Details.Operator = v },
	"type":        func(r *ctdf.TrainRecord, v string) { r.Details.Type = v },
	"origin":      func(r *ctdf.TrainRecord, v string) { r.Details.Origin = v },
	"destination": func(r *ctdf.TrainRecord, v string) { r.Details.Destination = v },
	"platform":    func(r *ctdf.TrainRecord, v string) { r.Details.Platform = v },
	"info":        func(r *ctdf.TrainRecord, v string) { r.Details.Info = v },
	"status":      func(r *ctdf.TrainRecord, v string) { r.Status = ctdf.TrainStatus(v) },
}

func recordEnvironment(record *ctdf.TrainRecord) map[string]interface{} {
	environment := map[string]interface{}{
		"id":          record.ID,
		"number":      record.Number,
		"status":      string(record.Status),
		"speed":       record.Speed,
		"heading":     record.Heading,
		"type":        record.Details.Type,
		"operator":    record.Details.Operator,
		"origin":      record.Details.Origin,
		"destination": record.Details.Destination,
		"platform":    record.Details.Platform,
		"delay":       record.Details.Delay,
		"hasPosition": record.Position.IsFinite(),
		"lat":         0.0,
		"lng":         0.0,
	}

	if record.Position != nil {
		environment["lat"] = record.Position.Lat
		environment["lng"] = record.Position.Lng
	}

	return environment
}

func (t *TransformDefinition) compile() error {
	if len(t.Set) == 0 {
		return fmt.Errorf("transform %q sets no fields", t.Name)
	}

	for field, value := range t.Set {
		if _, ok := settableFields[field]; !ok {
			return fmt.Errorf("transform %q sets unknown field %q", t.Name, field)
		}

		if field == "status" && !ctdf.TrainStatus(value).IsValid() {
			return fmt.Errorf("transform %q sets invalid status %q", t.Name, value)
		}
	}

	if strings.TrimSpace(t.When) == "" {
		return nil
	}

	program, err := expr.Compile(t.When, expr.Env(recordEnvironment(&ctdf.TrainRecord{})), expr.AsBool())
	if err != nil {
		return fmt.Errorf("transform %q: %w", t.Name, err)
	}
	t.program = program

	return nil
}

func (t *TransformDefinition) Matches(record *ctdf.TrainRecord) (bool, error) {
	if t.program == nil {
		return true, nil
	}

	output, err := expr.Run(t.program, recordEnvironment(record))
	if err != nil {
		return false, err
	}

	matched, _ := output.(bool)
	return matched, nil
}

// Transform applies the definition and reports whether the record changed
func (t *TransformDefinition) Transform(record *ctdf.TrainRecord) (bool, error) {
	matched, err := t.Matches(record)
	if err != nil || !matched {
		return false, err
	}

	before := record.Clone()
	for field, value := range t.Set {
		settableFields[field](record, value)
	}

	return before.Details.Operator != record.Details.Operator ||
		before.Details.Type != record.Details.Type ||
		before.Details.Origin != record.Details.Origin ||
		before.Details.Destination != record.Details.Destination ||
		before.Details.Platform != record.Details.Platform ||
		before.Details.Info != record.Details.Info ||
		before.Status != record.Status, nil
}
