package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skillcore/coordinator/internal/apperrors"
)

func TestCreatePrompt(t *testing.T) {
	r := NewRegistry()
	id := r.CreatePrompt("baseline", "v1", "template text", "first cut", "admin-1")

	prompt, err := r.GetPrompt(id)
	require.NoError(t, err)
	assert.Equal(t, "baseline", prompt.Name)
	assert.False(t, prompt.IsDefault)
}

func TestSetDefaultPrompt_FlipsPreviousDefault(t *testing.T) {
	r := NewRegistry()
	a := r.CreatePrompt("a", "v1", "t", "", "admin-1")
	b := r.CreatePrompt("b", "v1", "t", "", "admin-1")

	require.NoError(t, r.SetDefaultPrompt(a))
	require.NoError(t, r.SetDefaultPrompt(b))

	pa, _ := r.GetPrompt(a)
	pb, _ := r.GetPrompt(b)
	assert.False(t, pa.IsDefault)
	assert.True(t, pb.IsDefault)

	def, err := r.GetDefaultPrompt()
	require.NoError(t, err)
	assert.Equal(t, b, def.ID)
}

func TestDeletePrompt_RejectsDefault(t *testing.T) {
	r := NewRegistry()
	id := r.CreatePrompt("a", "v1", "t", "", "admin-1")
	require.NoError(t, r.SetDefaultPrompt(id))

	err := r.DeletePrompt(id)
	assert.Equal(t, apperrors.Conflict, apperrors.KindOf(err))
}

func TestDeletePrompt_AllowsNonDefault(t *testing.T) {
	r := NewRegistry()
	id := r.CreatePrompt("a", "v1", "t", "", "admin-1")
	require.NoError(t, r.DeletePrompt(id))

	_, err := r.GetPrompt(id)
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}

func TestGetDefaultPrompt_NoneConfigured(t *testing.T) {
	r := NewRegistry()
	_, err := r.GetDefaultPrompt()
	assert.Equal(t, apperrors.NotFound, apperrors.KindOf(err))
}

func TestListPrompts(t *testing.T) {
	r := NewRegistry()
	r.CreatePrompt("a", "v1", "t", "", "admin-1")
	r.CreatePrompt("b", "v1", "t", "", "admin-1")
	assert.Len(t, r.ListPrompts(), 2)
}
