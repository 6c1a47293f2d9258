package assembler

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arthur-debert/rioship/pkg/errors"
	"github.com/arthur-debert/rioship/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssemble_FatJar(t *testing.T) {
	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	testutil.WriteFile(t, filepath.Join(classes, "frc/robot/Main.class"), "main")
	testutil.WriteFile(t, filepath.Join(classes, "frc/robot/Robot.class"), "robot")
	testutil.WriteJar(t, filepath.Join(dir, "libs/wpilib.jar"), map[string]string{
		"edu/wpi/first/Timer.class": "timer",
		"META-INF/MANIFEST.MF":      "Manifest-Version: 1.0\r\nMain-Class: other.Main\r\n\r\n",
		"META-INF/WPILIB.SF":        "signature",
		"edu/":                      "",
	})

	out := filepath.Join(dir, "build", "robot.jar")
	artifact, err := Assemble(context.Background(), Spec{
		Name:      "robot",
		Output:    out,
		MainEntry: "frc.robot.Main",
		CreatedBy: "rioship test",
		Manifest:  map[string]string{"Implementation-Title": "robot"},
		Sources: []CompiledUnit{
			{Name: "classes", Path: classes},
			{Name: "wpilib", Path: filepath.Join(dir, "libs/wpilib.jar")},
		},
	})
	require.NoError(t, err)

	contents, names := testutil.ReadArchive(t, out)
	assert.Equal(t, ManifestPath, names[0])
	assert.Equal(t, "main", contents["frc/robot/Main.class"])
	assert.Equal(t, "timer", contents["edu/wpi/first/Timer.class"])
	assert.NotContains(t, contents, "META-INF/WPILIB.SF")
	assert.NotContains(t, contents, "edu/")

	manifest := ParseManifest([]byte(contents[ManifestPath]))
	assert.Equal(t, "frc.robot.Main", manifest.MainClass)
	assert.Equal(t, "rioship test", manifest.CreatedBy)
	assert.Equal(t, "robot", manifest.Extra["Implementation-Title"])

	assert.Equal(t, "frc.robot.Main", artifact.MainEntry)
	assert.Len(t, artifact.Checksum, 64)
	assert.Equal(t, names, artifact.Entries)
	info, err := os.Stat(out)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), artifact.Size)
}

func TestAssemble_ManifestReferencesMainEntry(t *testing.T) {
	dir := t.TempDir()
	for _, main := range []string{"a.Main", "frc.robot.Main", "com.example.really.long.package.name.that.keeps.going.and.going.Main"} {
		testutil.WriteJar(t, filepath.Join(dir, "dep.jar"), map[string]string{
			"META-INF/MANIFEST.MF": "Manifest-Version: 1.0\r\nMain-Class: wrong.Main\r\n\r\n",
		})
		out := filepath.Join(dir, "out.jar")
		_, err := Assemble(context.Background(), Spec{
			Name:      "robot",
			Output:    out,
			MainEntry: main,
			Sources:   []CompiledUnit{{Name: "dep", Path: filepath.Join(dir, "dep.jar")}},
		})
		require.NoError(t, err)

		contents, _ := testutil.ReadArchive(t, out)
		assert.Equal(t, main, ParseManifest([]byte(contents[ManifestPath])).MainClass)
	}
}

func TestAssemble_RejectsManifestInjection(t *testing.T) {
	dir := t.TempDir()
	classes := filepath.Join(dir, "classes")
	testutil.WriteFile(t, filepath.Join(classes, "frc/robot/Main.class"), "main")
	out := filepath.Join(dir, "robot.jar")

	_, err := Assemble(context.Background(), Spec{
		Name:      "robot",
		Output:    out,
		MainEntry: "frc.robot.Main",
		Manifest:  map[string]string{"X-Team": "1\r\nMain-Class: evil.Main"},
		Sources:   []CompiledUnit{{Name: "classes", Path: classes}},
	})
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAssembly))
	testutil.AssertNoFile(t, out)
}

func TestAssemble_LastWriteWins(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "first/a.txt"), "first-a")
	testutil.WriteFile(t, filepath.Join(dir, "first/b.txt"), "first-b")
	testutil.WriteFile(t, filepath.Join(dir, "second/a.txt"), "second-a")

	out := filepath.Join(dir, "out.jar")
	artifact, err := Assemble(context.Background(), Spec{
		Name:      "robot",
		Output:    out,
		MainEntry: "Main",
		Sources: []CompiledUnit{
			{Name: "first", Path: filepath.Join(dir, "first")},
			{Name: "second", Path: filepath.Join(dir, "second")},
		},
	})
	require.NoError(t, err)

	contents, names := testutil.ReadArchive(t, out)
	assert.Equal(t, "second-a", contents["a.txt"])
	assert.Equal(t, "first-b", contents["b.txt"])
	assert.Equal(t, []string{ManifestPath, "a.txt", "b.txt"}, names)
	assert.Equal(t, names, artifact.Entries)
}

func TestAssemble_SingleFile(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "native/libfoo.so"), "elf")

	out := filepath.Join(dir, "out.jar")
	_, err := Assemble(context.Background(), Spec{
		Name: "robot", Output: out, MainEntry: "Main",
		Sources: []CompiledUnit{{Name: "lib", Path: filepath.Join(dir, "native/libfoo.so")}},
	})
	require.NoError(t, err)

	contents, _ := testutil.ReadArchive(t, out)
	assert.Equal(t, "elf", contents["libfoo.so"])
}

func TestAssemble_Errors(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "corrupt.jar"), "not a zip")
	testutil.WriteFile(t, filepath.Join(dir, "classes/A.class"), "a")

	tests := []struct {
		name string
		spec Spec
	}{
		{
			name: "missing unit",
			spec: Spec{Name: "robot", Output: filepath.Join(dir, "o.jar"), MainEntry: "Main",
				Sources: []CompiledUnit{{Name: "gone", Path: filepath.Join(dir, "gone")}}},
		},
		{
			name: "corrupt archive",
			spec: Spec{Name: "robot", Output: filepath.Join(dir, "o.jar"), MainEntry: "Main",
				Sources: []CompiledUnit{{Name: "bad", Path: filepath.Join(dir, "corrupt.jar")}}},
		},
		{
			name: "no main entry",
			spec: Spec{Name: "robot", Output: filepath.Join(dir, "o.jar"),
				Sources: []CompiledUnit{{Name: "classes", Path: filepath.Join(dir, "classes")}}},
		},
		{
			name: "no sources",
			spec: Spec{Name: "robot", Output: filepath.Join(dir, "o.jar"), MainEntry: "Main"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assemble(context.Background(), tt.spec)
			require.Error(t, err)
			assert.True(t, errors.IsErrorCode(err, errors.ErrAssembly), "got %v", err)
			_, statErr := os.Stat(filepath.Join(dir, "o.jar"))
			assert.True(t, os.IsNotExist(statErr), "no bundle is written on failure")
		})
	}
}

func TestAssemble_ReplacesPriorBundle(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out.jar")
	testutil.WriteFile(t, out, "stale")
	testutil.WriteFile(t, filepath.Join(dir, "classes/A.class"), "a")

	_, err := Assemble(context.Background(), Spec{
		Name: "robot", Output: out, MainEntry: "Main",
		Sources: []CompiledUnit{{Name: "classes", Path: filepath.Join(dir, "classes")}},
	})
	require.NoError(t, err)

	contents, _ := testutil.ReadArchive(t, out)
	assert.Equal(t, "a", contents["A.class"])

	leftovers, err := filepath.Glob(filepath.Join(dir, ".out.jar-*.tmp"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestAssemble_Deterministic(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "classes/A.class"), "a")
	spec := Spec{
		Name: "robot", MainEntry: "Main",
		Sources: []CompiledUnit{{Name: "classes", Path: filepath.Join(dir, "classes")}},
	}

	spec.Output = filepath.Join(dir, "one.jar")
	one, err := Assemble(context.Background(), spec)
	require.NoError(t, err)
	spec.Output = filepath.Join(dir, "two.jar")
	two, err := Assemble(context.Background(), spec)
	require.NoError(t, err)

	assert.Equal(t, one.Checksum, two.Checksum)
}

func TestArtifact_ConsumeOnce(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "classes/A.class"), "a")
	artifact, err := Assemble(context.Background(), Spec{
		Name: "robot", Output: filepath.Join(dir, "out.jar"), MainEntry: "Main",
		Sources: []CompiledUnit{{Name: "classes", Path: filepath.Join(dir, "classes")}},
	})
	require.NoError(t, err)

	require.NoError(t, artifact.Consume())
	assert.True(t, artifact.Consumed())

	err = artifact.Consume()
	require.Error(t, err)
	assert.True(t, errors.IsErrorCode(err, errors.ErrAssembly))
}

func TestArtifact_VerifyDetectsTampering(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, filepath.Join(dir, "classes/A.class"), "a")
	out := filepath.Join(dir, "out.jar")
	artifact, err := Assemble(context.Background(), Spec{
		Name: "robot", Output: out, MainEntry: "Main",
		Sources: []CompiledUnit{{Name: "classes", Path: filepath.Join(dir, "classes")}},
	})
	require.NoError(t, err)
	require.NoError(t, artifact.Verify())

	testutil.WriteFile(t, out, "tampered")
	assert.True(t, errors.IsErrorCode(artifact.Consume(), errors.ErrAssembly))
	assert.False(t, artifact.Consumed())

	require.NoError(t, artifact.Discard())
	require.NoError(t, artifact.Discard(), "discarding twice is fine")
	assert.True(t, errors.IsErrorCode(artifact.Verify(), errors.ErrAssembly))
}

func TestSelectVariant(t *testing.T) {
	units := []CompiledUnit{
		{Name: "classes"},
		{Name: "wpilib-debug", Variant: VariantDebug},
		{Name: "wpilib", Variant: VariantRelease},
		{Name: "vendordep"},
	}

	names := func(us []CompiledUnit) []string {
		var out []string
		for _, u := range us {
			out = append(out, u.Name)
		}
		return out
	}

	assert.Equal(t, []string{"classes", "wpilib-debug", "vendordep"}, names(SelectVariant(units, true)))
	assert.Equal(t, []string{"classes", "wpilib", "vendordep"}, names(SelectVariant(units, false)))
}
