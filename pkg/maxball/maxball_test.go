package maxball

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"porenet/internal/models"
	"porenet/pkg/errs"
	"porenet/pkg/imageio"
	"porenet/pkg/network"
)

// stub writes an executable shell script into a fresh directory.
func stub(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell stubs need a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "pnextract")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

// sampleStub copies the testdata outputs next to the header it is given and
// records its working directory in cwdFile.
func sampleStub(t *testing.T, cwdFile string) string {
	t.Helper()
	data, err := filepath.Abs("testdata")
	require.NoError(t, err)
	return stub(t, fmt.Sprintf(`name=$(basename "$1" .mhd)
test -f "$name.raw" || { echo "missing raw image" >&2; exit 2; }
pwd > %q
for s in node1 node2 link1 link2; do cp %q/sample_$s.dat "${name}_$s.dat"; done
`, cwdFile, data))
}

func cube(t *testing.T) *models.Binary {
	t.Helper()
	im, err := models.NewGrid[bool]([]int{4, 4, 4})
	require.NoError(t, err)
	for i := range im.Data {
		im.Data[i] = i%3 != 0
	}
	return im
}

func TestParseStatoil(t *testing.T) {
	pores, links, err := parseStatoil("testdata", "sample")
	require.NoError(t, err)
	require.Len(t, pores, 3)
	require.Len(t, links, 4)

	net, err := toNetwork(pores, links)
	require.NoError(t, err)
	assert.NoError(t, net.CheckSchema())
	assert.Equal(t, 3, net.NumPores())
	assert.Equal(t, [][2]int{{0, 1}, {1, 2}}, net.Conns)

	assert.Equal(t, []float64{1, 0, 0}, net.Pore.Scalars(network.PoreInlet))
	assert.Equal(t, []float64{0, 0, 1}, net.Pore.Scalars(network.PoreOutlet))
	assert.Equal(t, []float64{1, 0, 1}, net.Pore.Scalars(network.PoreBoundary))
	assert.InDeltaSlice(t, []float64{8e-6, 7e-6, 6e-6}, net.Pore.Scalars(network.PoreInscribedDiameter), 1e-18)
	coords, _ := net.Pore.Get(network.PoreCoords)
	assert.InDeltaSlice(t, []float64{1.5e-5, 5e-6, 5e-6}, coords.Row(1), 1e-18)

	assert.InDeltaSlice(t, []float64{4e-6, 3e-6}, net.Throat.Scalars(network.ThroatInscribedDiameter), 1e-18)
	assert.InDeltaSlice(t, []float64{4.5e-6, 5.5e-6}, net.Throat.Scalars(network.ThroatConduitLength), 1e-18)
	assert.InDeltaSlice(t, []float64{1e-5, 1e-5}, net.Throat.Scalars(network.ThroatTotalLength), 1e-18)
	assert.InEpsilon(t, 4e-12/0.12, net.Throat.Scalars(network.ThroatCrossSectionalArea)[0], 1e-9)
}

func TestParseStatoilErrors(t *testing.T) {
	_, _, err := parseStatoil("testdata", "absent")
	assert.ErrorIs(t, err, errs.ErrParse)

	dir := t.TempDir()
	for _, s := range outputSuffixes {
		src, err := os.ReadFile(filepath.Join("testdata", "sample"+s))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, "bad"+s), src, 0o644))
	}
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_link1.dat"), []byte("4\n1 1 2 x 0.03 1e-05\n"), 0o644))
	_, _, err = parseStatoil(dir, "bad")
	assert.ErrorIs(t, err, errs.ErrParse)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_link1.dat"), []byte("1\n1 1 9 1e-6 0.03 1e-05\n"), 0o644))
	_, _, err = parseStatoil(dir, "bad")
	assert.ErrorIs(t, err, errs.ErrParse)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad_node1.dat"), []byte(""), 0o644))
	_, _, err = parseStatoil(dir, "bad")
	assert.ErrorIs(t, err, errs.ErrParse)
}

func TestWriteMetaImage(t *testing.T) {
	im, err := models.NewGrid[bool]([]int{2, 3, 4}, 1e-6)
	require.NoError(t, err)
	im.Set(true, 1, 2, 3)
	im.Set(true, 1, 0, 0)

	dir := t.TempDir()
	header, err := writeMetaImage(dir, "img", im, im.Spacing)
	require.NoError(t, err)

	text, err := os.ReadFile(header)
	require.NoError(t, err)
	assert.Contains(t, string(text), "DimSize = 2 3 4\n")
	assert.Contains(t, string(text), "ElementType = MET_UCHAR\n")
	assert.Contains(t, string(text), "ElementDataFile = img.raw\n")
	assert.Contains(t, string(text), "ElementSpacing = 1e-06 1e-06 1e-06\n")

	raw, err := os.ReadFile(filepath.Join(dir, "img.raw"))
	require.NoError(t, err)
	require.Len(t, raw, 24)
	// x fastest: offset x + 2*(y + 3*z)
	assert.Equal(t, byte(0), raw[1+2*(2+3*3)])
	assert.Equal(t, byte(0), raw[1])
	assert.Equal(t, byte(1), raw[0])
	assert.Equal(t, 22, strings.Count(string(raw), "\x01"))

	back, err := imageio.LoadRaw(filepath.Join(dir, "img.raw"), im.Shape, imageio.RawOptions{})
	require.NoError(t, err)
	assert.Equal(t, im.Data, back.Data)
}

func TestWriteMetaImage2D(t *testing.T) {
	im, err := models.NewGrid[bool]([]int{3, 2})
	require.NoError(t, err)
	im.Set(true, 2, 1)

	dir := t.TempDir()
	header, err := writeMetaImage(dir, "flat", im, im.Spacing)
	require.NoError(t, err)
	text, err := os.ReadFile(header)
	require.NoError(t, err)
	assert.Contains(t, string(text), "DimSize = 3 2 1\n")

	raw, err := os.ReadFile(filepath.Join(dir, "flat.raw"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 1, 1, 1, 1, 0}, raw)
}

func TestExtractWithStub(t *testing.T) {
	cwd := filepath.Join(t.TempDir(), "cwd")
	out := t.TempDir()
	a := &Adapter{
		Executable:  sampleStub(t, cwd),
		Prefix:      "test_maxball",
		KeepOutputs: true,
		OutputDir:   out,
	}
	net, err := a.Extract(context.Background(), cube(t))
	require.NoError(t, err)
	assert.Equal(t, 3, net.NumPores())
	assert.Equal(t, 2, net.NumThroats())

	for _, s := range outputSuffixes {
		assert.FileExists(t, filepath.Join(out, "test_maxball"+s))
	}
	ran, err := os.ReadFile(cwd)
	require.NoError(t, err)
	assert.NoDirExists(t, strings.TrimSpace(string(ran)))
}

func TestExtractFailingExecutable(t *testing.T) {
	a := &Adapter{Executable: stub(t, "echo boom >&2\nexit 3\n")}
	_, err := a.Extract(context.Background(), cube(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrIntegration)
	assert.Contains(t, err.Error(), "boom")
}

func TestExtractMissingOutputs(t *testing.T) {
	a := &Adapter{Executable: stub(t, "exit 0\n")}
	_, err := a.Extract(context.Background(), cube(t))
	assert.ErrorIs(t, err, errs.ErrParse)
}

func TestExtractRejectsExecutable(t *testing.T) {
	out := t.TempDir()
	_, err := (&Adapter{Executable: filepath.Join(out, "nope"), KeepOutputs: true, OutputDir: out}).Extract(context.Background(), cube(t))
	assert.ErrorIs(t, err, errs.ErrIntegration)
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)

	_, err = (&Adapter{}).Extract(context.Background(), cube(t))
	assert.ErrorIs(t, err, errs.ErrIntegration)

	_, err = (&Adapter{Executable: out}).Extract(context.Background(), cube(t))
	assert.ErrorIs(t, err, errs.ErrIntegration)

	if runtime.GOOS != "windows" {
		plain := filepath.Join(out, "plain")
		require.NoError(t, os.WriteFile(plain, []byte("#!/bin/sh\n"), 0o644))
		_, err = (&Adapter{Executable: plain}).Extract(context.Background(), cube(t))
		assert.ErrorIs(t, err, errs.ErrIntegration)

		exe := filepath.Join(out, "pnextract.exe")
		require.NoError(t, os.WriteFile(exe, []byte("MZ"), 0o755))
		_, err = (&Adapter{Executable: exe}).Extract(context.Background(), cube(t))
		assert.ErrorIs(t, err, errs.ErrIntegration)
	}
}

func TestExtractCancelled(t *testing.T) {
	a := &Adapter{Executable: stub(t, "sleep 5\n")}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Extract(ctx, cube(t))
	assert.ErrorIs(t, err, context.Canceled)
}
