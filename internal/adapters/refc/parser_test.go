package refc_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/kiln/internal/adapters/refc"
)

func TestParse_ImportsAndDeclarations(t *testing.T) {
	src := `
import greet
import shout
import greet

// helpers
fun hello(name: String, punct: String = "!") = greet(name) + punct
private fun secret() = 42
val answer: Int = 42
class Greeter(val prefix: String) {
    fun nested() = prefix
}
data class Pair(val a: Int, val b: Int)
`
	p, err := refc.Parse("Hello.kt", []byte(src))
	require.NoError(t, err)

	assert.Equal(t, []string{"greet", "shout"}, p.Imports)
	require.Len(t, p.Decls, 5)
	assert.Equal(t, refc.Decl{Name: "hello", Signature: `fun hello(name: String, punct: String = "!")`}, p.Decls[0])
	assert.Equal(t, refc.Decl{Name: "secret", Signature: "private fun secret()", Private: true}, p.Decls[1])
	assert.Equal(t, refc.Decl{Name: "answer", Signature: "val answer: Int"}, p.Decls[2])
	assert.Equal(t, refc.Decl{Name: "Greeter", Signature: "class Greeter(val prefix: String)"}, p.Decls[3])
	assert.Equal(t, "Pair", p.Decls[4].Name)

	abi := p.ABI()
	require.Len(t, abi, 4)
	for _, d := range abi {
		assert.NotEqual(t, "secret", d.Name)
	}
}

func TestParse_CommentsAndWhitespaceDoNotChangeBody(t *testing.T) {
	a, err := refc.Parse("A.kt", []byte("fun a() = 1\n"))
	require.NoError(t, err)
	b, err := refc.Parse("A.kt", []byte("// a comment\n\nfun   a()  = 1   // trailing\n"))
	require.NoError(t, err)
	c, err := refc.Parse("A.kt", []byte("fun a() = 2\n"))
	require.NoError(t, err)

	assert.Equal(t, a.BodyHash, b.BodyHash)
	assert.NotEqual(t, a.BodyHash, c.BodyHash)
}

func TestParse_UnbalancedBraces(t *testing.T) {
	_, err := refc.Parse("Bad.kt", []byte("fun a() {\n"))
	var perr *refc.ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Bad.kt", perr.Path)
	assert.Contains(t, err.Error(), "unbalanced braces")

	_, err = refc.Parse("Bad.kt", []byte("}\n"))
	require.ErrorContains(t, err, "Bad.kt:1: unexpected '}'")
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "Greeter.class", refc.ClassName("/src/lib/Greeter.kt"))
	assert.Equal(t, "Main.class", refc.ClassName("Main.kt"))
}
