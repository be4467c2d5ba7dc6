package strmatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearch(t *testing.T) {
	r, err := Search(`S\d+`, "sample_S12_L001.fastq")
	require.NoError(t, err)
	assert.Equal(t, Result{Value: "sample_S12_L001.fastq", Matched: true}, r)

	r, err = Search(`S\d+`, "undetermined.fastq")
	require.NoError(t, err)
	assert.False(t, r.Matched)
	assert.Empty(t, r.Value)
}

func TestExtract(t *testing.T) {
	r, err := Extract(`S\d+`, "sample_S12_L001.fastq")
	require.NoError(t, err)
	assert.Equal(t, Result{Value: "S12", Matched: true}, r)

	t.Run("empty match still counts", func(t *testing.T) {
		r, err := Extract(`x*`, "abc")
		require.NoError(t, err)
		assert.True(t, r.Matched)
		assert.Equal(t, "", r.Value)
	})
}

func TestSearchAll(t *testing.T) {
	input := []string{"a.bam", "b.vcf", "c.bam"}

	t.Run("trim drops non-matches", func(t *testing.T) {
		got, err := SearchAll(`\.bam$`, input, true)
		require.NoError(t, err)
		assert.Equal(t, []string{"a.bam", "c.bam"}, Values(got))
		assert.Len(t, got, 2)
	})

	t.Run("without trim keeps positions", func(t *testing.T) {
		got, err := SearchAll(`\.bam$`, input, false)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.True(t, got[0].Matched)
		assert.False(t, got[1].Matched)
		assert.True(t, got[2].Matched)
	})
}

func TestExtractAll(t *testing.T) {
	got, err := ExtractAll(`[0-9]{4}-[0-9]{2}`, []string{"run 2024-03 a", "none", "2023-11"}, false)
	require.NoError(t, err)
	assert.Equal(t, []Result{
		{Value: "2024-03", Matched: true},
		{},
		{Value: "2023-11", Matched: true},
	}, got)
}

func TestInvalidPattern(t *testing.T) {
	_, err := Search(`(`, "x")
	assert.ErrorContains(t, err, "invalid regex pattern")
	_, err = ExtractAll(`[`, []string{"x"}, true)
	assert.Error(t, err)
}
