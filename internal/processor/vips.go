package processor

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/davidbyttow/govips/v2/vips"
)

var (
	vipsInitOnce sync.Once
	vipsMu       sync.Mutex
	vipsRunning  bool
)

// VipsProcessor реализация на libvips, заметно экономнее по памяти на больших JPEG
type VipsProcessor struct {
	log *slog.Logger
}

func NewVipsProcessor(log *slog.Logger) (*VipsProcessor, error) {
	vipsInitOnce.Do(func() {
		vips.LoggingSettings(func(domain string, level vips.LogLevel, msg string) {
			switch level {
			case vips.LogLevelError, vips.LogLevelCritical:
				log.Error(msg, slog.String("domain", domain))
			case vips.LogLevelWarning:
				log.Warn(msg, slog.String("domain", domain))
			default:
				log.Debug(msg, slog.String("domain", domain))
			}
		}, vips.LogLevelWarning)

		vips.Startup(&vips.Config{
			ConcurrencyLevel: 1,
			MaxCacheMem:      50 * 1024 * 1024,
			MaxCacheSize:     100,
		})

		vipsMu.Lock()
		vipsRunning = true
		vipsMu.Unlock()

		log.Info("libvips initialized", slog.String("version", vips.Version))
	})

	return &VipsProcessor{log: log}, nil
}

// ShutdownVips освобождает ресурсы libvips, вызывается при остановке приложения
func ShutdownVips() {
	vipsMu.Lock()
	defer vipsMu.Unlock()

	if vipsRunning {
		vips.Shutdown()
		vipsRunning = false
	}
}

func (p *VipsProcessor) Name() string {
	return ChoiceVips
}

// Dimensions размеры после AutoRotate: ориентации 5-8 меняют стороны местами
func (p *VipsProcessor) Dimensions(src []byte) (int, int, error) {
	const op = "processor.VipsProcessor.Dimensions"

	if len(src) == 0 {
		return 0, 0, fmt.Errorf("%s: %w", op, ErrEmptySource)
	}

	ref, err := vips.NewImageFromBuffer(src)
	if err != nil {
		return 0, 0, fmt.Errorf("%s: vips failed to load image: %w", op, err)
	}
	defer ref.Close()

	w, h := ref.Width(), ref.Height()
	if swapsAxes(ref.Orientation()) {
		w, h = h, w
	}

	return w, h, nil
}

func (p *VipsProcessor) Resample(ctx context.Context, src []byte, width, height int) ([]byte, error) {
	const op = "processor.VipsProcessor.Resample"

	if len(src) == 0 {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptySource)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ref, err := vips.NewImageFromBuffer(src)
	if err != nil {
		return nil, fmt.Errorf("%s: vips failed to load image: %w", op, err)
	}
	defer ref.Close()

	if err := ref.AutoRotate(); err != nil {
		return nil, fmt.Errorf("%s: vips auto-rotate failed: %w", op, err)
	}

	if err := ref.ThumbnailWithSize(width, height, vips.InterestingNone, vips.SizeForce); err != nil {
		return nil, fmt.Errorf("%s: vips resize failed: %w", op, err)
	}

	out, _, err := ref.ExportNative()
	if err != nil {
		return nil, fmt.Errorf("%s: vips export failed: %w", op, err)
	}

	return out, nil
}
