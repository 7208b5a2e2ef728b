package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/blackjack/webcam"

	"turnstile/internal/config"
	"turnstile/internal/logging"
	"turnstile/internal/services"
)

// V4L2 fourcc codes, little endian.
const (
	pixelFormatMJPEG = webcam.PixelFormat(0x47504A4D) // "MJPG"
	pixelFormatYUYV  = webcam.PixelFormat(0x56595559) // "YUYV"
)

// waitSliceSeconds bounds each kernel wait so ctx cancellation is noticed.
const waitSliceSeconds = 1

// Frame is one captured camera image with its capture instant.
type Frame struct {
	Image      image.Image
	CapturedAt time.Time
}

// Source yields frames for the capture loop.
type Source interface {
	ReadFrame(ctx context.Context) (Frame, error)
	Close() error
}

// DevicePath maps a configured device index to its V4L2 node.
func DevicePath(index int) string {
	return fmt.Sprintf("/dev/video%d", index)
}

// Device is a streaming V4L2 capture device.
type Device struct {
	cam    *webcam.Webcam
	path   string
	format webcam.PixelFormat
	width  int
	height int

	readTimeout time.Duration
	logger      *slog.Logger
}

// OpenDevice opens the configured device node, negotiates a pixel format
// (MJPEG preferred, YUYV fallback) and starts streaming.
func OpenDevice(cfg *config.Config, logger *slog.Logger) (*Device, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	path := DevicePath(cfg.Camera.DeviceIndex)

	cam, err := webcam.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrUnavailable, "camera", "open", path, err)
	}

	format, err := pickFormat(cam)
	if err != nil {
		_ = cam.Close()
		return nil, services.Wrap(services.ErrUnavailable, "camera", "negotiate format", path, err)
	}

	actualFormat, width, height, err := cam.SetImageFormat(
		format,
		uint32(cfg.Camera.FrameWidth),
		uint32(cfg.Camera.FrameHeight),
	)
	if err != nil {
		_ = cam.Close()
		return nil, services.Wrap(services.ErrUnavailable, "camera", "set format", path, err)
	}

	if err := cam.StartStreaming(); err != nil {
		_ = cam.Close()
		return nil, services.Wrap(services.ErrUnavailable, "camera", "start streaming", path, err)
	}

	device := &Device{
		cam:         cam,
		path:        path,
		format:      actualFormat,
		width:       int(width),
		height:      int(height),
		readTimeout: time.Duration(cfg.Camera.ReadTimeout) * time.Second,
		logger:      logging.NewComponentLogger(logger, "camera"),
	}

	device.logger.Info("capture device streaming",
		logging.Args(
			logging.String("device", path),
			logging.String("format", formatName(actualFormat)),
			logging.Int("width", device.width),
			logging.Int("height", device.height),
		)...)

	return device, nil
}

// ReadFrame blocks until a decodable frame arrives, ctx is cancelled, or
// the configured read timeout elapses. Undecodable frames are skipped.
func (d *Device) ReadFrame(ctx context.Context) (Frame, error) {
	deadline := time.Time{}
	if d.readTimeout > 0 {
		deadline = time.Now().Add(d.readTimeout)
	}

	for {
		if err := ctx.Err(); err != nil {
			return Frame{}, err
		}
		if !deadline.IsZero() && time.Now().After(deadline) {
			return Frame{}, services.Wrap(services.ErrUnavailable, "camera", "read frame", d.path,
				errors.New("no frame within read timeout"))
		}

		err := d.cam.WaitForFrame(waitSliceSeconds)
		switch err.(type) {
		case nil:
		case *webcam.Timeout:
			continue
		default:
			return Frame{}, services.Wrap(services.ErrUnavailable, "camera", "wait frame", d.path, err)
		}

		data, err := d.cam.ReadFrame()
		if err != nil {
			return Frame{}, services.Wrap(services.ErrUnavailable, "camera", "read frame", d.path, err)
		}
		if len(data) == 0 {
			continue
		}

		img, err := decodeFrame(d.format, data, d.width, d.height)
		if err != nil {
			d.logger.Debug("skipping undecodable frame", logging.Args(logging.Error(err))...)
			continue
		}
		return Frame{Image: img, CapturedAt: time.Now()}, nil
	}
}

// Close stops streaming and releases the device node.
func (d *Device) Close() error {
	if d == nil || d.cam == nil {
		return nil
	}
	_ = d.cam.StopStreaming()
	return d.cam.Close()
}

// pickFormat selects MJPEG when the device offers it, otherwise YUYV.
func pickFormat(cam *webcam.Webcam) (webcam.PixelFormat, error) {
	formats := cam.GetSupportedFormats()
	if _, ok := formats[pixelFormatMJPEG]; ok {
		return pixelFormatMJPEG, nil
	}
	if _, ok := formats[pixelFormatYUYV]; ok {
		return pixelFormatYUYV, nil
	}
	return 0, fmt.Errorf("device offers neither MJPEG nor YUYV (%d formats)", len(formats))
}

func formatName(format webcam.PixelFormat) string {
	switch format {
	case pixelFormatMJPEG:
		return "MJPG"
	case pixelFormatYUYV:
		return "YUYV"
	default:
		return fmt.Sprintf("0x%08X", uint32(format))
	}
}
