package pipeline

import (
	"context"
	"errors"
	"io"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/linuxmatters/accentprep/internal/audio"
	"github.com/linuxmatters/accentprep/internal/config"
	"github.com/linuxmatters/accentprep/internal/features"
	"github.com/linuxmatters/accentprep/internal/logging"
	"github.com/linuxmatters/accentprep/internal/processor"
)

// writeTone writes a mono 16 kHz WAV of a 220 Hz tone at about -12 dBFS over
// a faint noise bed
func writeTone(t *testing.T, path string, seconds float64) {
	t.Helper()
	const rate = 16000
	rng := rand.New(rand.NewPCG(1, 2))
	n := int(seconds * rate)
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = 0.35*math.Sin(2*math.Pi*220*float64(i)/rate) + 0.001*(rng.Float64()*2-1)
	}
	if err := audio.WriteWAV(path, audio.Waveform{Samples: samples, SampleRate: rate}); err != nil {
		t.Fatalf("failed to write fixture: %v", err)
	}
}

func testConfig() *config.Root {
	cfg := config.Default()
	cfg.Segment.DurationMS = 1000
	return cfg
}

func newTestPipeline(t *testing.T, cfg *config.Root, opts Options) *Pipeline {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	opts.Logger = logger
	p, err := New(cfg, opts)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return p
}

func listNames(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read %s: %v", dir, err)
	}
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

// recorder captures observer events
type recorder struct {
	NopObserver
	phases    []Phase
	completed []FileResult
	stages    map[processor.StageID]int
	onFile    func(FileResult)
}

func (r *recorder) PhaseStarted(phase Phase, _ []string) {
	r.phases = append(r.phases, phase)
}

func (r *recorder) StageChanged(_ Phase, _ int, stage processor.StageID, _ float64, _ *processor.AudioMeasurements) {
	if r.stages == nil {
		r.stages = make(map[processor.StageID]int)
	}
	r.stages[stage]++
}

func (r *recorder) FileCompleted(result FileResult) {
	r.completed = append(r.completed, result)
	if r.onFile != nil {
		r.onFile(result)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.Default()
	cfg.Segment.DurationMS = 0
	if _, err := New(cfg, Options{}); err == nil {
		t.Error("New accepted a zero segment duration")
	}
}

func TestLabelResolution(t *testing.T) {
	cfg := testConfig()
	p := newTestPipeline(t, cfg, Options{})
	if got := p.Label("", "/data/irish"); got != "irish" {
		t.Errorf("Label from dir = %q, want irish", got)
	}
	if got := p.Label("welsh", "/data/irish"); got != "welsh" {
		t.Errorf("explicit Label = %q, want welsh", got)
	}

	cfg.Pipeline.Label = "scottish"
	p = newTestPipeline(t, cfg, Options{})
	if got := p.Label("", "/data/irish"); got != "scottish" {
		t.Errorf("configured Label = %q, want scottish", got)
	}
	if p.RunID() == "" {
		t.Error("RunID is empty")
	}
}

func TestRun(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "geordie")
	if err := os.Mkdir(input, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTone(t, filepath.Join(input, "talk.wav"), 2.5)
	writeTone(t, filepath.Join(input, "chat.wav"), 1.2)
	if err := os.WriteFile(filepath.Join(input, "readme.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}

	obs := &recorder{}
	p := newTestPipeline(t, testConfig(), Options{Observer: obs})
	ws := NewWorkspace(filepath.Join(root, "work"))

	clean, extract, err := p.Run(context.Background(), input, ws, "")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if clean.Files != 2 || clean.Processed != 2 || clean.Failed != 0 {
		t.Errorf("clean summary = %+v", clean)
	}
	if got := listNames(t, ws.Cleaned); !slices.Equal(got, []string{"chat.wav", "talk.wav"}) {
		t.Errorf("cleaned files = %v", got)
	}

	// 2.5 s → 3 clips (1, 1, 0.5 s); 1.2 s → 2 clips (1, 0.2 s)
	if extract.Processed != 2 || extract.Clips != 5 || extract.Tables != 5 {
		t.Errorf("extract summary = %+v, want 2 files, 5 clips, 5 tables", extract)
	}
	wantClips := []string{
		"chat_segment_0.wav", "chat_segment_1.wav",
		"talk_segment_0.wav", "talk_segment_1.wav", "talk_segment_2.wav",
	}
	if got := listNames(t, filepath.Join(ws.Segments, "geordie")); !slices.Equal(got, wantClips) {
		t.Errorf("segments = %v, want %v", got, wantClips)
	}
	wantTables := []string{
		"chat_segment_0.csv", "chat_segment_1.csv",
		"talk_segment_0.csv", "talk_segment_1.csv", "talk_segment_2.csv",
	}
	if got := listNames(t, filepath.Join(ws.Features, "geordie")); !slices.Equal(got, wantTables) {
		t.Errorf("features = %v, want %v", got, wantTables)
	}

	// The last clip is shorter, never padded
	last, _, err := audio.Load(context.Background(), SegmentPath(ws.Segments, "geordie", "talk", 2), audio.DefaultFormat())
	if err != nil {
		t.Fatalf("failed to load last clip: %v", err)
	}
	if last.Len() != 8000 {
		t.Errorf("last clip has %d samples, want 8000", last.Len())
	}

	f, err := os.Open(FeaturePath(ws.Features, "geordie", "talk", 0))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	m, err := features.ReadTable(f)
	if err != nil {
		t.Fatalf("ReadTable failed: %v", err)
	}
	if m.Rows() != features.DefaultConfig().NumCoefficients || m.Cols() == 0 {
		t.Errorf("table shape = %dx%d", m.Rows(), m.Cols())
	}

	if !slices.Equal(obs.phases, []Phase{PhaseClean, PhaseExtract}) {
		t.Errorf("phases = %v", obs.phases)
	}
	if len(obs.completed) != 4 {
		t.Errorf("observer saw %d completed files, want 4", len(obs.completed))
	}
	if obs.stages[processor.StageFeatures] != 5 {
		t.Errorf("feature progress events = %d, want one per clip", obs.stages[processor.StageFeatures])
	}
}

func TestCleanIsolatesFailures(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "in")
	cleaned := filepath.Join(root, "cleaned")
	if err := os.Mkdir(input, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTone(t, filepath.Join(input, "a.wav"), 1.0)
	if err := os.WriteFile(filepath.Join(input, "b.wav"), []byte("not a wav file"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeTone(t, filepath.Join(input, "c.wav"), 1.0)
	// Same stem as c.take2.wav, which sorts first and claims c.wav
	writeTone(t, filepath.Join(input, "c.take2.wav"), 1.0)

	p := newTestPipeline(t, testConfig(), Options{})
	summary, err := p.Clean(context.Background(), input, cleaned)
	if err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	if summary.Files != 4 || summary.Processed != 2 || summary.Failed != 2 {
		t.Fatalf("summary = %+v, want 2 processed and 2 failed", summary)
	}

	byName := make(map[string]FileResult)
	for _, r := range summary.Results {
		byName[filepath.Base(r.Input)] = r
	}
	var decodeErr *audio.DecodeError
	if r := byName["b.wav"]; !errors.As(r.Err, &decodeErr) || !errors.Is(r.Err, audio.ErrDecode) {
		t.Errorf("b.wav error = %v, want DecodeError", r.Err)
	}
	if r := byName["c.take2.wav"]; !r.OK() || r.Output != filepath.Join(cleaned, "c.wav") {
		t.Errorf("c.take2.wav = %q, %v", r.Output, r.Err)
	}
	if r := byName["c.wav"]; !errors.Is(r.Err, ErrDuplicateStem) {
		t.Errorf("c.wav error = %v, want ErrDuplicateStem", r.Err)
	}

	if got := listNames(t, cleaned); !slices.Equal(got, []string{"a.wav", "c.wav"}) {
		t.Errorf("cleaned files = %v, want [a.wav c.wav]", got)
	}
}

func TestCleanStopsBetweenFilesWhenCancelled(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "in")
	cleaned := filepath.Join(root, "cleaned")
	if err := os.Mkdir(input, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"a.wav", "b.wav", "c.wav"} {
		writeTone(t, filepath.Join(input, name), 0.5)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	obs := &recorder{onFile: func(FileResult) { cancel() }}

	p := newTestPipeline(t, testConfig(), Options{Observer: obs})
	summary, err := p.Clean(ctx, input, cleaned)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if summary == nil || summary.Processed != 1 || len(summary.Results) != 1 {
		t.Fatalf("summary = %+v, want exactly the first file", summary)
	}
	if got := listNames(t, cleaned); !slices.Equal(got, []string{"a.wav"}) {
		t.Errorf("cleaned files = %v, want [a.wav]", got)
	}
}

func TestCleanWritesReports(t *testing.T) {
	root := t.TempDir()
	input := filepath.Join(root, "in")
	cleaned := filepath.Join(root, "cleaned")
	if err := os.Mkdir(input, 0o755); err != nil {
		t.Fatal(err)
	}
	writeTone(t, filepath.Join(input, "talk.wav"), 1.0)

	p := newTestPipeline(t, testConfig(), Options{Reports: true})
	if _, err := p.Clean(context.Background(), input, cleaned); err != nil {
		t.Fatalf("Clean failed: %v", err)
	}

	data, err := os.ReadFile(logging.ReportPath(filepath.Join(cleaned, "talk.wav")))
	if err != nil {
		t.Fatalf("report not written: %v", err)
	}
	report := string(data)
	for _, want := range []string{"talk.wav", p.RunID(), "Loudness Normalisation"} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q", want)
		}
	}

	// The report must not be picked up as a cleaned waveform
	files, err := ListCleanedFiles(cleaned)
	if err != nil || len(files) != 1 {
		t.Errorf("ListCleanedFiles = %v, %v", files, err)
	}
}

func TestExtractRejectsBadLabel(t *testing.T) {
	root := t.TempDir()
	p := newTestPipeline(t, testConfig(), Options{})
	_, err := p.Extract(context.Background(), root, filepath.Join(root, "s"), filepath.Join(root, "f"), "../escape")
	if err == nil {
		t.Fatal("Extract accepted a label with a path separator")
	}
	if _, statErr := os.Stat(filepath.Join(root, "s")); !os.IsNotExist(statErr) {
		t.Error("segments root created despite invalid label")
	}
}

func TestCleanMissingInputDir(t *testing.T) {
	root := t.TempDir()
	p := newTestPipeline(t, testConfig(), Options{})
	_, err := p.Clean(context.Background(), filepath.Join(root, "missing"), filepath.Join(root, "out"))
	if !errors.Is(err, ErrIO) {
		t.Errorf("error = %v, want ErrIO", err)
	}
}

func TestExtractRemovesStaleClips(t *testing.T) {
	root := t.TempDir()
	cleaned := filepath.Join(root, "cleaned")
	segments := filepath.Join(root, "segments")
	feats := filepath.Join(root, "features")
	if err := os.Mkdir(cleaned, 0o755); err != nil {
		t.Fatal(err)
	}
	rec := &recorder{}
	p := newTestPipeline(t, testConfig(), Options{Observer: rec})

	writeTone(t, filepath.Join(cleaned, "talk.wav"), 2.5)
	summary, err := p.Extract(context.Background(), cleaned, segments, feats, "irish")
	if err != nil || summary.Clips != 3 {
		t.Fatalf("first extract: clips=%v err=%v", summary, err)
	}
	// clips of another recording in the same label must survive
	other := filepath.Join(segments, "irish", "chat_segment_5.wav")
	if err := os.WriteFile(other, nil, 0o644); err != nil {
		t.Fatal(err)
	}

	writeTone(t, filepath.Join(cleaned, "talk.wav"), 1.2)
	summary, err = p.Extract(context.Background(), cleaned, segments, feats, "irish")
	if err != nil || summary.Clips != 2 || summary.Tables != 2 {
		t.Fatalf("second extract: summary=%+v err=%v", summary, err)
	}

	wantSeg := []string{"chat_segment_5.wav", "talk_segment_0.wav", "talk_segment_1.wav"}
	if got := listNames(t, filepath.Join(segments, "irish")); !slices.Equal(got, wantSeg) {
		t.Errorf("segments = %v, want %v", got, wantSeg)
	}
	wantFeat := []string{"talk_segment_0.csv", "talk_segment_1.csv"}
	if got := listNames(t, filepath.Join(feats, "irish")); !slices.Equal(got, wantFeat) {
		t.Errorf("features = %v, want %v", got, wantFeat)
	}

	// segment stage opens and closes once per file per run
	if got := rec.stages[processor.StageSegment]; got != 4 {
		t.Errorf("segment stage events = %d, want 4", got)
	}
}
