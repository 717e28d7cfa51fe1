package transforms

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog/log"
	"github.com/travigo/livetrains/pkg/ctdf"
	"github.com/travigo/livetrains/pkg/util"
	"gopkg.in/yaml.v3"
)

type transformsDocument struct {
	Transforms []*TransformDefinition `yaml:"transforms"`
}

// Set is an ordered list of definitions, later ones win
type Set struct {
	definitions []*TransformDefinition
}

var transforms = &Set{}

// SetupClient loads the definitions named by LIVETRAINS_TRANSFORMS_FILE, if any
func SetupClient() error {
	env := util.GetEnvironmentVariables()

	path := env["LIVETRAINS_TRANSFORMS_FILE"]
	if path == "" {
		return nil
	}

	set, err := LoadFile(path)
	if err != nil {
		return err
	}
	transforms = set

	log.Info().Str("path", path).Int("transforms", set.Len()).Msg("Loaded record transforms")

	return nil
}

func Default() *Set {
	return transforms
}

func LoadFile(path string) (*Set, error) {
	transformYaml, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	return Load(bytes.NewReader(transformYaml))
}

// Load reads every YAML document in reader
func Load(reader io.Reader) (*Set, error) {
	set := &Set{}
	decoder := yaml.NewDecoder(reader)

	for {
		var document transformsDocument
		err := decoder.Decode(&document)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decoding transforms: %w", err)
		}

		for _, definition := range document.Transforms {
			if err := definition.compile(); err != nil {
				return nil, err
			}
			set.definitions = append(set.definitions, definition)
		}
	}

	return set, nil
}

func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.definitions)
}

// Apply runs every definition over the record and reports whether anything changed.
// Definitions that fail to evaluate are skipped.
func (s *Set) Apply(record *ctdf.TrainRecord) bool {
	if s == nil {
		return false
	}

	changed := false
	for _, definition := range s.definitions {
		definitionChanged, err := definition.Transform(record)
		if err != nil {
			log.Debug().Err(err).Str("transform", definition.Name).Str("train", record.ID).Msg("Transform evaluation failed")
			continue
		}
		changed = changed || definitionChanged
	}

	return changed
}
