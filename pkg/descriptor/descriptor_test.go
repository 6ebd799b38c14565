package descriptor

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		params []Type
		ret    Type
	}{
		{"no params void", "()V", nil, Type{Kind: Void}},
		{"int param", "(I)V", []Type{{Kind: Int}}, Type{Kind: Void}},
		{
			"mixed",
			"(IJ[Ljava/lang/String;[[D)Ljava/util/List;",
			[]Type{
				{Kind: Int},
				{Kind: Long},
				{Dims: 1, Kind: Object, Name: "java/lang/String"},
				{Dims: 2, Kind: Double},
			},
			Type{Kind: Object, Name: "java/util/List"},
		},
		{"array return", "()[B", nil, Type{Dims: 1, Kind: Byte}},
		{"nested class", "(Ljava/util/Map$Entry;)Z", []Type{{Kind: Object, Name: "java/util/Map$Entry"}}, Type{Kind: Boolean}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.params, d.Params)
			assert.Equal(t, tt.ret, d.Return)
			assert.Equal(t, tt.input, d.String())
		})
	}
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"no parens", "IV"},
		{"missing close", "(I"},
		{"missing return", "(I)"},
		{"void param", "(V)V"},
		{"void array", "()[V"},
		{"unterminated class", "(Ljava/lang/String)V"},
		{"empty class", "(L;)V"},
		{"bad char", "(Q)V"},
		{"trailing", "()VV"},
		{"source form", "(int) void"},
		{"too many dims", "(" + strings.Repeat("[", MaxArrayDims+1) + "I)V"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))

			var me *MalformedError
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.input, me.Descriptor)
		})
	}
}

func TestParseMaxDims(t *testing.T) {
	d, err := Parse("(" + strings.Repeat("[", MaxArrayDims) + "I)V")
	require.NoError(t, err)
	assert.Equal(t, MaxArrayDims, d.Params[0].Dims)
}

func TestParseSource(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"() void", "()V"},
		{"(int) void", "(I)V"},
		{"(int, long) boolean", "(IJ)Z"},
		{"(java.lang.String[], int[][]) java.util.List", "([Ljava/lang/String;[[I)Ljava/util/List;"},
		{"(String... args) void", ""},
		{"(java.lang.Object...) void", "([Ljava/lang/Object;)V"},
		{"  ( char , byte )  short ", "(CB)S"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			d, err := ParseSource(tt.input)
			if tt.want == "" {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.String())
		})
	}
}

func TestParseSourceMalformed(t *testing.T) {
	for _, input := range []string{"", "int) void", "(int", "(int)", "(void) int", "(int,) void", "(1abc) void", "(a..b) void", "(I) V", "(int) V", "(I) void", "(String, J) void"} {
		t.Run(input, func(t *testing.T) {
			_, err := ParseSource(input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestResolve(t *testing.T) {
	d, err := Resolve("(I)V")
	require.NoError(t, err)
	assert.Equal(t, "(I)V", d.String())

	d, err = Resolve("(int) void")
	require.NoError(t, err)
	assert.Equal(t, "(I)V", d.String())

	d, err = Resolve("(int)boolean")
	require.NoError(t, err)
	assert.Equal(t, "(I)Z", d.String())

	d, err = Resolve("(Foo) Bar")
	require.NoError(t, err)
	assert.Equal(t, "(LFoo;)LBar;", d.String())

	_, err = Resolve("(nope")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Resolve("(Lfoo)V")
	assert.ErrorIs(t, err, ErrMalformed)

	// JVM base-type letters are never read as source-form class names.
	_, err = Resolve("(I) V")
	assert.ErrorIs(t, err, ErrMalformed)

	ok, err := Equal("(I) V", "(LI;)LV;")
	assert.ErrorIs(t, err, ErrMalformed)
	assert.False(t, ok)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want bool
	}{
		{"identical", "(I)V", "(I)V", true},
		{"different param", "(I)V", "(J)V", false},
		{"different return", "(I)V", "(I)I", false},
		{"different arity", "(I)V", "(II)V", false},
		{"dotted vs slashed", "(Ljava.lang.String;)V", "(Ljava/lang/String;)V", true},
		{"nested dollar vs dot", "(Ljava/util/Map$Entry;)V", "(Ljava.util.Map.Entry;)V", true},
		{"array dims differ", "([I)V", "([[I)V", false},
		{"array vs scalar", "([I)V", "(I)V", false},
		{"array class", "([Ljava/lang/String;)V", "([Ljava.lang.String;)V", true},
		{"source vs jvm", "(int, java.lang.String) void", "(ILjava/lang/String;)V", true},
		{"source vs jvm mismatch", "(long) void", "(I)V", false},
		{"different class", "(Ljava/lang/String;)V", "(Ljava/lang/Object;)V", false},
		{"primitive vs class named I", "(I)V", "(LI;)V", false},
		{"params do not merge", "(Ljava/lang/String;I)V", "(Ljava/lang/StringI;)V", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Equal(tt.a, tt.b)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)

			back, err := Equal(tt.b, tt.a)
			require.NoError(t, err)
			assert.Equal(t, got, back, "equality must be symmetric")
		})
	}
}

func TestEqualMalformed(t *testing.T) {
	_, err := Equal("", "()V")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Equal("()V", "")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Equal("", "")
	assert.ErrorIs(t, err, ErrMalformed, "empty descriptors are not wildcards")

	_, err = Equal("(I)V", "(Lfoo)V")
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Equal("(I)V", "(Ljava.lang.String)V")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestEqualIsEquivalenceRelation(t *testing.T) {
	samples := []string{
		"()V",
		"(I)V",
		"(int) void",
		"(J)V",
		"(Ljava/lang/String;)V",
		"(Ljava.lang.String;)V",
		"(java.lang.String) void",
		"(Ljava/util/Map$Entry;)V",
		"(Ljava.util.Map.Entry;)V",
		"(java.util.Map$Entry) void",
		"([I)V",
		"(int[]) void",
		"([[I)V",
		"(Ljava/lang/Object;I)Ljava/lang/String;",
		"(java.lang.Object, int) java.lang.String",
	}

	eq := func(a, b string) bool {
		ok, err := Equal(a, b)
		require.NoError(t, err)
		return ok
	}

	for _, a := range samples {
		assert.True(t, eq(a, a), "reflexive: %s", a)
		for _, b := range samples {
			assert.Equal(t, eq(a, b), eq(b, a), "symmetric: %s, %s", a, b)
			for _, c := range samples {
				if eq(a, b) && eq(b, c) {
					assert.True(t, eq(a, c), "transitive: %s, %s, %s", a, b, c)
				}
			}
		}
	}
}

func TestInternalize(t *testing.T) {
	got, err := Internalize("(java.lang.String, int) void")
	require.NoError(t, err)
	assert.Equal(t, "(Ljava/lang/String;I)V", got)

	got, err = Internalize("(J)Z")
	require.NoError(t, err)
	assert.Equal(t, "(J)Z", got)

	_, err = Internalize("garbage")
	assert.Error(t, err)
}

func TestKeyNormalizesSeparators(t *testing.T) {
	a, err := Parse("(Ljava/util/Map$Entry;)V")
	require.NoError(t, err)
	b, err := Parse("(Ljava.util.Map.Entry;)V")
	require.NoError(t, err)

	assert.Equal(t, a.Key(), b.Key())
	assert.NotEqual(t, a.String(), b.String())
	assert.True(t, a.Equivalent(b))
}
