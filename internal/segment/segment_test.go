package segment_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/explainbot/internal/segment"
)

func TestSplit_MergedTailKeepsParagraphBreak(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("A", 10) + strings.Repeat("B", 10) + strings.Repeat("C", 10)
	got := segment.Split(content, segment.Options{
		Algorithm:     segment.Length,
		SegmentLength: 10,
		MinSegments:   1,
		MaxSegments:   2,
	})

	want := []string{strings.Repeat("A", 10), strings.Repeat("B", 10) + "\n\n" + strings.Repeat("C", 10)}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Split mismatch (-want +got):\n%s", diff)
	}
}

func TestSplit_ShortParagraphsArePacked(t *testing.T) {
	t.Parallel()

	content := "AAA\n\nBBB\n\n" + strings.Repeat("C", 20)
	want := []string{"AAA\n\nBBB", strings.Repeat("C", 20)}

	for _, alg := range []segment.Algorithm{segment.Smart, segment.Sentence, segment.Length} {
		t.Run(string(alg), func(t *testing.T) {
			t.Parallel()
			got := segment.Split(content, segment.Options{
				Algorithm:              alg,
				SegmentLength:          25,
				MinSegments:            1,
				MaxSegments:            10,
				KeepParagraphIntegrity: true,
				MinParagraphLength:     5,
			})
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Split mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestSplit_ShortContentIsWhole(t *testing.T) {
	t.Parallel()

	got := segment.Split("短文本。", segment.Options{Algorithm: segment.Smart, SegmentLength: 400, MaxSegments: 4})
	assert.Equal(t, []string{"短文本。"}, got)
}

func TestSplit_BelowMinSegmentsIsWhole(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("x", 30)
	got := segment.Split(content, segment.Options{Algorithm: segment.Length, SegmentLength: 20, MinSegments: 3, MaxSegments: 5})
	assert.Equal(t, []string{content}, got)
}

func TestSplit_SmartFallsBackToSentences(t *testing.T) {
	t.Parallel()

	content := "第一句话很短。第二句话也很短！第三句呢？"
	got := segment.Split(content, segment.Options{Algorithm: segment.Smart, SegmentLength: 8, MaxSegments: 10})
	assert.Equal(t, []string{"第一句话很短。", "第二句话也很短！", "第三句呢？"}, got)
}

func TestSplit_LengthCountsRunes(t *testing.T) {
	t.Parallel()

	got := segment.Split("一二三四五六七", segment.Options{Algorithm: segment.Length, SegmentLength: 3, MaxSegments: 10})
	assert.Equal(t, []string{"一二三", "四五六", "七"}, got)
}

func TestSplit_SentenceCustomSeparators(t *testing.T) {
	t.Parallel()

	got := segment.Split("alpha; beta; gamma", segment.Options{
		Algorithm:     segment.Sentence,
		SegmentLength: 8,
		MaxSegments:   10,
		Separators:    []string{";"},
	})
	assert.Equal(t, []string{"alpha;", " beta;", " gamma"}, got)
}

func TestSplit_RespectsMaxSegments(t *testing.T) {
	t.Parallel()

	content := strings.Repeat("句子。", 40)
	got := segment.Split(content, segment.Options{Algorithm: segment.Sentence, SegmentLength: 10, MaxSegments: 4})
	require.Len(t, got, 4)
	assert.Equal(t, strings.Count(content, "句子"), strings.Count(strings.Join(got, ""), "句子"))
}

func TestParseAlgorithm(t *testing.T) {
	t.Parallel()

	for in, want := range map[string]segment.Algorithm{
		"smart":    segment.Smart,
		"Sentence": segment.Sentence,
		" length ": segment.Length,
		"":         segment.Smart,
	} {
		got, err := segment.ParseAlgorithm(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	got, err := segment.ParseAlgorithm("fancy")
	assert.Error(t, err)
	assert.Equal(t, segment.Smart, got)
}
