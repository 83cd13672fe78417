//go:build unit

package ticket

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingRenderer struct{}

func (failingRenderer) Render(string) (string, error) {
	return "", errors.New("render backend down")
}

func TestOpaqueRenderer_Deterministic(t *testing.T) {
	r := NewOpaqueRenderer()

	first, err := r.Render("TKT-8F3KQW2NVXYZ")
	require.NoError(t, err)
	second, err := r.Render("TKT-8F3KQW2NVXYZ")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.NotEmpty(t, first)
}

func TestOpaqueRenderer_DistinctPerReference(t *testing.T) {
	r := NewOpaqueRenderer()

	a, err := r.Render("TKT-8F3KQW2NVXYZ")
	require.NoError(t, err)
	b, err := r.Render("TKT-8F3KQW2NVXYA")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestIssuer_RenderFailureIsNonFatal(t *testing.T) {
	issuer := NewIssuer(failingRenderer{})

	result := issuer.Issue("TKT-8F3KQW2NVXYZ")

	assert.Error(t, result.Err)
	assert.Empty(t, result.Artifact)
}
