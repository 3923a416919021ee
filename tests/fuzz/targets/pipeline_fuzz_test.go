package targets

import (
	"context"
	"errors"
	"testing"

	"github.com/funvibe/solidscript/internal/config"
	"github.com/funvibe/solidscript/internal/diagnostics"
	"github.com/funvibe/solidscript/pkg/interp"
	"github.com/funvibe/solidscript/tests/fuzz/generators"
)

// FuzzPipeline runs generated programs end to end. Two properties hold
// for every input: the pipeline never panics, and every failure is a
// stage-tagged IntegrationError.
func FuzzPipeline(f *testing.F) {
	f.Add([]byte("basic"))
	f.Add([]byte{0, 1, 2, 3, 4, 5, 6, 7})
	f.Add([]byte{255, 254, 253})

	f.Fuzz(func(t *testing.T, data []byte) {
		code := generators.NewFromData(data).GenerateProgram()

		pipe := interp.New(config.Default())
		if err := pipe.Initialize(); err != nil {
			t.Fatalf("Initialize failed: %v", err)
		}
		defer pipe.Close()

		res, err := pipe.ProcessCode(context.Background(), code)
		if err != nil {
			var ie *diagnostics.IntegrationError
			if !errors.As(err, &ie) {
				t.Errorf("untagged failure %T for:\n%s\n%v", err, code, err)
			}
			return
		}

		if len(res.Summaries) != len(res.GeometryNodes) {
			t.Errorf("%d summaries for %d nodes:\n%s",
				len(res.Summaries), len(res.GeometryNodes), code)
		}
		for _, s := range res.Summaries {
			if s.Type == "" {
				t.Errorf("summary without a type for:\n%s", code)
			}
		}
	})
}
