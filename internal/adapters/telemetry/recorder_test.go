package telemetry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/donno/cake/internal/adapters/telemetry"
)

func TestRecorderLifecycle(t *testing.T) {
	recorder := telemetry.New()
	assert.NotNil(t, recorder)

	vertex := recorder.Record("dcc -c src.c -o out.o")
	_, err := vertex.Stdout().Write([]byte("compiling\n"))
	assert.NoError(t, err)
	vertex.Complete(nil)

	cached := recorder.Record("copy out.txt")
	cached.Cached()
	cached.Complete(nil)

	assert.NoError(t, recorder.Close())
}

func TestNoOp(t *testing.T) {
	recorder := telemetry.NewNoOp()
	vertex := recorder.Record("anything")
	n, err := vertex.Stdout().Write([]byte("discarded"))
	assert.NoError(t, err)
	assert.Equal(t, 9, n)
	vertex.Cached()
	vertex.Complete(nil)
	assert.NoError(t, recorder.Close())
}
