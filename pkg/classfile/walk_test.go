package classfile

import (
	"archive/zip"
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/panbanda/invokecheck/internal/testutil"
	"github.com/panbanda/invokecheck/pkg/invoke"
)

type recorder struct {
	events []string
}

func (r *recorder) VisitClass(name invoke.TypeName) {
	r.events = append(r.events, "class "+string(name))
}
func (r *recorder) VisitMethodStart(name, desc string) {
	r.events = append(r.events, "start "+name+desc)
}
func (r *recorder) VisitCall(c invoke.CallInstruction) { r.events = append(r.events, "call "+c.Name) }
func (r *recorder) VisitMethodEnd()                    { r.events = append(r.events, "end") }

// serviceClass declares run(), which calls
// helper(int) three times and helper(String) once.
func serviceClass() []byte {
	b := testutil.NewClass("com/example/Service")
	helperInt := b.Invoke(testutil.OpInvokevirtual, "com/example/Service", "helper", "(I)V")
	helperStr := b.Invoke(testutil.OpInvokevirtual, "com/example/Service", "helper", "(Ljava/lang/String;)V")
	millis := b.Invoke(testutil.OpInvokestatic, "java/lang/System", "currentTimeMillis", "()J")
	b.Method("run", "()V", helperInt, millis, helperInt, helperStr, helperInt, testutil.Op(testutil.OpReturn))
	b.Method("helper", "(I)V", testutil.Op(testutil.OpReturn))
	b.Method("helper", "(Ljava/lang/String;)V", testutil.Op(testutil.OpReturn))
	b.AbstractMethod("idle", "()V")
	return b.Bytes()
}

func TestWalkEventOrder(t *testing.T) {
	rec := &recorder{}
	c, err := Accept(serviceClass(), rec)
	require.NoError(t, err)
	assert.Equal(t, invoke.TypeName("com/example/Service"), c.Name)

	assert.Equal(t, []string{
		"class com/example/Service",
		"start run()V",
		"call helper", "call currentTimeMillis", "call helper", "call helper", "call helper",
		"end",
		"start helper(I)V", "end",
		"start helper(Ljava/lang/String;)V", "end",
		"start idle()V", "end",
	}, rec.events)
}

func TestWalkHelperOverloads(t *testing.T) {
	target := invoke.TargetSpec{Type: "com/example/Service", Name: "run"}
	tests := []struct {
		call invoke.CallSpec
		want bool
	}{
		{invoke.CallSpec{Name: "helper", Descriptor: "(I)V", Count: 3}, true},
		{invoke.CallSpec{Name: "helper", Descriptor: "(I)V", Count: 4}, false},
		{invoke.CallSpec{Name: "helper", Count: 4}, true},
		{invoke.CallSpec{Name: "helper", Count: 5}, false},
		{invoke.CallSpec{Name: "helper", Descriptor: "(int) void", Count: 3}, true},
	}

	var verifiers []invoke.Visitor
	for _, tt := range tests {
		v, err := invoke.NewVerifier(target, tt.call)
		require.NoError(t, err)
		verifiers = append(verifiers, v)
	}

	_, err := Accept(serviceClass(), verifiers...)
	require.NoError(t, err)
	for i, tt := range tests {
		got, err := verifiers[i].(*invoke.Verifier).Verdict()
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "call spec %d", i)
	}
}

func TestWalkStopsBeforeBadMethod(t *testing.T) {
	b := testutil.NewClass("a/B")
	b.Method("good", "()V", b.Invoke(testutil.OpInvokestatic, "a/B", "x", "()V"))
	b.Method("bad", "()V", testutil.Op(0xfe))

	rec := &recorder{}
	_, err := Accept(b.Bytes(), rec)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidClass)
	assert.Equal(t, []string{"class a/B", "start good()V", "call x", "end"}, rec.events)
}

func TestBodies(t *testing.T) {
	c, err := Decode(serviceClass())
	require.NoError(t, err)
	bodies, err := c.Bodies()
	require.NoError(t, err)
	require.Len(t, bodies, 4)
	assert.Len(t, bodies[0].Calls, 5)

	res, err := invoke.Verify(c.Name, bodies,
		invoke.TargetSpec{Name: "run"},
		invoke.CallSpec{Name: "helper", Descriptor: "(I)V", Count: 3})
	require.NoError(t, err)
	assert.True(t, res.Verdict)
}

func TestReadJar(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.jar")
	testutil.WriteJar(t, path, map[string][]byte{
		"META-INF/MANIFEST.MF":          []byte("Manifest-Version: 1.0\n"),
		"com/example/Service.class":     serviceClass(),
		"com/example/Other.class":       testutil.NewClass("com/example/Other").Bytes(),
		"com/example/resources/app.yml": []byte("a: 1\n"),
	})

	var names []string
	err := ReadJar(path, func(name string, data []byte, readErr error) error {
		require.NoError(t, readErr)
		names = append(names, name)
		_, err := Decode(data)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"com/example/Other.class", "com/example/Service.class"}, names)
}

func TestReadJarFromErrors(t *testing.T) {
	junk := []byte("not a zip")
	err := ReadJarFrom(bytes.NewReader(junk), int64(len(junk)), func(string, []byte, error) error { return nil })
	assert.Error(t, err)

	err = ReadJar(filepath.Join(t.TempDir(), "missing.jar"), func(string, []byte, error) error { return nil })
	assert.ErrorIs(t, err, os.ErrNotExist)

	data := testutil.JarBytes(t, map[string][]byte{"a/B.class": serviceClass()})
	stop := assert.AnError
	err = ReadJarFrom(bytes.NewReader(data), int64(len(data)), func(string, []byte, error) error { return stop })
	assert.ErrorIs(t, err, stop)
}

func TestReadJarContinuesPastCorruptEntry(t *testing.T) {
	good := testutil.NewClass("io/Good").Bytes()
	bad := testutil.NewClass("io/Bad").Bytes()
	data := testutil.StoredJarBytes(t, map[string][]byte{
		"io/Bad.class":  bad,
		"io/Good.class": good,
	})
	data = testutil.CorruptEntry(t, data, bad)

	got := map[string]error{}
	err := ReadJarFrom(bytes.NewReader(data), int64(len(data)), func(name string, entry []byte, readErr error) error {
		got[name] = readErr
		if readErr == nil {
			assert.Equal(t, good, entry)
		} else {
			assert.Nil(t, entry)
		}
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.ErrorIs(t, got["io/Bad.class"], zip.ErrChecksum)
	assert.NoError(t, got["io/Good.class"])
}

func TestReadEntryLimit(t *testing.T) {
	content := bytes.Repeat([]byte{0xAB}, 100)
	data := testutil.JarBytes(t, map[string][]byte{"a/Big.class": content})
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Len(t, zr.File, 1)

	_, err = readEntry(zr.File[0], 10)
	assert.ErrorIs(t, err, ErrEntryTooLarge)

	got, err := readEntry(zr.File[0], 100)
	require.NoError(t, err)
	assert.Equal(t, content, got)
}

func TestNameHelpers(t *testing.T) {
	assert.True(t, IsClassName("a/B.class"))
	assert.False(t, IsClassName("a/B.java"))
	assert.True(t, IsArchiveName("lib/app.JAR"))
	assert.True(t, IsArchiveName("app.war"))
	assert.False(t, IsArchiveName("app.class"))
}
