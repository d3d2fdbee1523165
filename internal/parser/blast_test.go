package parser

import (
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/domainbrowser/searchjobs/internal/types"
)

func openFixture(t *testing.T, name string) *os.File {
	t.Helper()
	f, err := os.Open("testdata/" + name)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

func TestParseBlastXML(t *testing.T) {
	result, err := ParseBlastXML(openFixture(t, "blast_two_hits.xml"))
	require.NoError(t, err)

	assert.Equal(t, 52, result.QueryLength)
	require.Len(t, result.Hits, 2)

	first := result.Hits[0]
	assert.Equal(t, 1, first.Ordinal)
	assert.Equal(t, "1abcA01", first.Target)
	assert.Equal(t, "12-63", first.Range)
	assert.Nil(t, first.Key)
	assert.InDelta(t, 2.5e-27, first.EValue, 1e-30)
	assert.InDelta(t, 101.3, first.BitScore, 1e-9)
	assert.Equal(t, 8, first.Identical)
	assert.InDelta(t, 80.0, first.Identity, 1e-9)
	assert.Equal(t, 10, first.AlignLength)
	assert.Equal(t, 1, first.QueryStart)
	assert.Equal(t, 10, first.QueryEnd)
	assert.Equal(t, 12, first.TargetStart)
	assert.Equal(t, 21, first.TargetEnd)
	require.NotNil(t, first.Alignment)
	assert.Equal(t, "MKTAYIAKQR", first.Alignment.Query)
	assert.Equal(t, "MKTAYLAKQK", first.Alignment.Subject)
	assert.Equal(t, "MKTAY AKQ ", first.Alignment.Midline)

	// definition line missing: falls back to the hit id
	second := result.Hits[1]
	assert.Equal(t, 2, second.Ordinal)
	assert.Equal(t, "2xyzB02", second.Target)
	assert.Empty(t, second.Range)
	assert.Equal(t, 2, second.Gaps)
	assert.InDelta(t, 25.0, second.Identity, 1e-9)
}

func TestParseBlastXML_NoHits(t *testing.T) {
	result, err := ParseBlastXML(openFixture(t, "blast_no_hits.xml"))
	require.NoError(t, err)
	assert.Equal(t, 30, result.QueryLength)
	assert.NotNil(t, result.Hits)
	assert.Empty(t, result.Hits)
}

func TestParseBlastXML_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "  \n"} {
		result, err := ParseBlastXML(strings.NewReader(in))
		require.NoError(t, err)
		assert.Empty(t, result.Hits)
	}
}

func TestParseBlastXML_Malformed(t *testing.T) {
	_, err := ParseBlastXML(strings.NewReader("<BlastOutput><BlastOutput_iterations><Iteration>"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, types.ErrParse))

	_, err = ParseBlastXML(strings.NewReader("<NotBlast/>"))
	assert.True(t, errors.Is(err, types.ErrParse))
}

func TestBlastTerminated(t *testing.T) {
	assert.True(t, BlastTerminated([]byte("<BlastOutput>\n</BlastOutput>\n")))
	assert.False(t, BlastTerminated([]byte("<BlastOutput>\n<BlastOutput_iterations>")))
	assert.False(t, BlastTerminated(nil))
}

func TestSplitHitDef(t *testing.T) {
	target, rng := splitHitDef("  1abcA01   12-63 extra ")
	assert.Equal(t, "1abcA01", target)
	assert.Equal(t, "12-63", rng)

	target, rng = splitHitDef("only")
	assert.Equal(t, "only", target)
	assert.Empty(t, rng)
}
