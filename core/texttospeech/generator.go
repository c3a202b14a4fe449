package texttospeech

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/koscakluka/ema-ordersim/core/scenario"
	"go.opentelemetry.io/otel/attribute"
)

// Synthesizer speaks text in the voice of a dialogue role. Implementations
// hold network resources and must be closed once no longer needed.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string, role scenario.Role, w io.Writer) error
	// FileExtension is the extension of the audio format written by
	// Synthesize, without the leading dot.
	FileExtension() string
	Close(ctx context.Context) error
}

const (
	DefaultOutputDir = "public/tts"
	DefaultAssetRoot = "/tts"
	MetadataFileName = "conversations.json"
)

// Generator renders the messages of scenarios to audio files and records
// where each file can be found.
type Generator struct {
	synthesizer Synthesizer
	outputDir   string
	assetRoot   string
}

type GeneratorOption func(*Generator)

func WithOutputDir(dir string) GeneratorOption {
	return func(g *Generator) {
		if dir != "" {
			g.outputDir = dir
		}
	}
}

// WithAssetRoot sets the public path prefix under which generated files are
// referenced from message audio paths.
func WithAssetRoot(root string) GeneratorOption {
	return func(g *Generator) {
		if root != "" {
			g.assetRoot = root
		}
	}
}

func NewGenerator(synthesizer Synthesizer, opts ...GeneratorOption) (*Generator, error) {
	g := &Generator{
		synthesizer: synthesizer,
		outputDir:   DefaultOutputDir,
		assetRoot:   DefaultAssetRoot,
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := os.MkdirAll(g.outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	return g, nil
}

func (g *Generator) OutputDir() string { return g.outputDir }

// MetadataPath is where the metadata of generated scenarios is stored.
func (g *Generator) MetadataPath() string {
	return filepath.Join(g.outputDir, MetadataFileName)
}

// GenerateScenario synthesises each message and returns the messages that
// now have audio, with AudioPath and Filename filled in. Messages without
// text are skipped, a message that fails to synthesise is logged and left
// out. Only cancellation stops the scenario.
func (g *Generator) GenerateScenario(ctx context.Context, name string, messages []scenario.Message) ([]scenario.Message, error) {
	ctx, span := tracer.Start(ctx, "generate scenario")
	defer span.End()
	span.SetAttributes(attribute.String("scenario", name), attribute.Int("messages", len(messages)))

	results := make([]scenario.Message, 0, len(messages))
	for i, msg := range messages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if msg.Text == "" {
			continue
		}

		msg.ID = scenario.MessageID(msg, i)
		if msg.Role == "" {
			msg.Role = scenario.RoleCustomer
		}
		filename := g.filename(name, msg)

		if err := g.synthesizeFile(ctx, msg, filename); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			generationFailures.Add(ctx, 1)
			logger.ErrorContext(ctx, "Error generating TTS for message", "scenario", name, "message", msg.ID, "error", err)
			continue
		}

		msg.Filename = filename
		msg.AudioPath = path.Join(g.assetRoot, filename)
		results = append(results, msg)
	}
	return results, nil
}

func (g *Generator) filename(scenarioName string, msg scenario.Message) string {
	base := fmt.Sprintf("%s_%s", msg.ID, msg.Role)
	if scenarioName != "" {
		base = scenarioName + "_" + base
	}
	return base + "." + g.synthesizer.FileExtension()
}

func (g *Generator) synthesizeFile(ctx context.Context, msg scenario.Message, filename string) error {
	outputPath := filepath.Join(g.outputDir, filename)
	f, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create audio file: %w", err)
	}

	if err := g.synthesizer.Synthesize(ctx, msg.Text, msg.Role, f); err != nil {
		_ = f.Close()
		_ = os.Remove(outputPath)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(outputPath)
		return fmt.Errorf("failed to close audio file: %w", err)
	}
	logger.InfoContext(ctx, "Generated", "path", outputPath)
	return nil
}
