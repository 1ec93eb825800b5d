package signs

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseExitToLiteralExample(t *testing.T) {
	got := ParseExitTo("US 11;To I 81;Carlisle;Harrisburg")
	assert.Equal(t, []string{"US 11", "I 81", "Carlisle", "Harrisburg"}, got.Towards)
	assert.Empty(t, got.Branches)
}

func TestParseExitToInfixSplit(t *testing.T) {
	got := ParseExitTo("Main St to Downtown")
	assert.Equal(t, []string{"Main St"}, got.Branches)
	assert.Equal(t, []string{"Downtown"}, got.Towards)
}

func TestParseExitToTowardInfixSplit(t *testing.T) {
	got := ParseExitTo("Main St toward Downtown")
	assert.Equal(t, []string{"Main St"}, got.Branches)
	assert.Equal(t, []string{"Downtown"}, got.Towards)
}

func TestParseExitToBothInfixesPresentFallsBackToWhole(t *testing.T) {
	got := ParseExitTo("Main St to Downtown toward Uptown")
	assert.Empty(t, got.Branches)
	assert.Equal(t, []string{"Main St to Downtown toward Uptown"}, got.Towards)
}

func TestMergeRefsAppendsMatchingDirection(t *testing.T) {
	got := MergeRefs("I 81;US 11", "I 81|north;PA 283|east")
	assert.Equal(t, "I 81 north;US 11", got)
}

func TestMergeRefsNoMatchKeepsBareRef(t *testing.T) {
	got := MergeRefs("I 81", "")
	assert.Equal(t, "I 81", got)
}
