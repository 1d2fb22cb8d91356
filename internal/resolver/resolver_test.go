package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveAppendsDTsExtension(t *testing.T) {
	assert.Equal(t, "/proj/src/a.d.ts", Resolve("./a", "/proj/src"))
}

func TestResolvePassesThroughExplicitDTs(t *testing.T) {
	assert.Equal(t, "/proj/src/a.d.ts", Resolve("./a.d.ts", "/proj/src"))
}

func TestResolveAppendsTsWhenSourceEndsInD(t *testing.T) {
	assert.Equal(t, "/proj/src/a.d.ts", Resolve("./a.d", "/proj/src"))
}

func TestResolveNormalizesDotDot(t *testing.T) {
	assert.Equal(t, "/proj/b.d.ts", Resolve("../b", "/proj/src"))
}

func TestResolveIsDeterministicAcrossEquivalentPaths(t *testing.T) {
	a := Resolve("./a", "/proj/src")
	b := Resolve("a", "/proj/src/")
	assert.Equal(t, a, b)
}

func TestResolveEntryRelativeToCwd(t *testing.T) {
	assert.Equal(t, "/work/index.d.ts", ResolveEntry("index.d.ts", "/work"))
	assert.Equal(t, "/work/nested/index.d.ts", ResolveEntry("./nested/index", "/work"))
}

func TestDirReturnsParent(t *testing.T) {
	assert.Equal(t, "/proj/src", Dir("/proj/src/a.d.ts"))
}
