package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"
)

// Device captures frames from a local video device through OpenCV.
type Device struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	mat    gocv.Mat
	width  int
	height int
	seq    uint64
	closed bool
}

// OpenDevice opens the numbered video device and requests the given
// capture settings. The request is best effort: the driver may pick a
// different mode, and Size reports what the device actually delivers.
//
// A device node that exists but refuses access fails with ErrPermission;
// a missing or unopenable device fails with ErrNoDevice. Both are meant
// to stop the caller before any capture loop starts.
func OpenDevice(id int, s Settings) (*Device, error) {
	if err := probeDeviceNode(id); err != nil {
		return nil, err
	}

	cap, err := gocv.OpenVideoCapture(id)
	if err != nil {
		return nil, fmt.Errorf("%w: device %d: %v", ErrNoDevice, id, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: device %d", ErrNoDevice, id)
	}

	cap.Set(gocv.VideoCaptureFrameWidth, float64(s.Width))
	cap.Set(gocv.VideoCaptureFrameHeight, float64(s.Height))
	cap.Set(gocv.VideoCaptureFPS, float64(s.Framerate))

	w := int(cap.Get(gocv.VideoCaptureFrameWidth))
	h := int(cap.Get(gocv.VideoCaptureFrameHeight))
	if w <= 0 || h <= 0 {
		w, h = s.Width, s.Height
	}

	return &Device{
		cap:    cap,
		mat:    gocv.NewMat(),
		width:  w,
		height: h,
	}, nil
}

// probeDeviceNode distinguishes a permission problem from a missing
// device before OpenCV collapses both into one opaque failure.
func probeDeviceNode(id int) error {
	path := fmt.Sprintf("/dev/video%d", id)
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	switch {
	case err == nil:
		f.Close()
		return nil
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s", ErrPermission, path)
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s", ErrNoDevice, path)
	default:
		// Probe inconclusive, let OpenCV try the open itself.
		return nil
	}
}

// Grab captures the current frame from the device.
func (d *Device) Grab(ctx context.Context) (Frame, error) {
	if err := ctx.Err(); err != nil {
		return Frame{}, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Frame{}, ErrClosed
	}

	if ok := d.cap.Read(&d.mat); !ok || d.mat.Empty() {
		return Frame{}, errors.New("camera: device returned no frame")
	}

	img, err := d.mat.ToImage()
	if err != nil {
		return Frame{}, fmt.Errorf("camera: convert frame: %w", err)
	}

	rgba, ok := img.(*image.RGBA)
	if !ok {
		b := img.Bounds()
		rgba = image.NewRGBA(b)
		draw.Draw(rgba, b, img, b.Min, draw.Src)
	}

	// Drivers occasionally renegotiate the mode mid stream.
	d.width = rgba.Bounds().Dx()
	d.height = rgba.Bounds().Dy()

	d.seq++
	return Frame{
		Seq:     d.seq,
		TraceID: uuid.NewString(),
		Time:    time.Now(),
		Image:   rgba,
	}, nil
}

// Size returns the dimensions the device currently delivers.
func (d *Device) Size() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.width, d.height
}

// Apply requests new capture parameters from the driver. Like the
// open-time request this is best effort; Size and subsequent grabs
// report whatever mode the driver settled on.
func (d *Device) Apply(s Settings) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}

	d.cap.Set(gocv.VideoCaptureFrameWidth, float64(s.Width))
	d.cap.Set(gocv.VideoCaptureFrameHeight, float64(s.Height))
	d.cap.Set(gocv.VideoCaptureFPS, float64(s.Framerate))

	if w := int(d.cap.Get(gocv.VideoCaptureFrameWidth)); w > 0 {
		d.width = w
	}
	if h := int(d.cap.Get(gocv.VideoCaptureFrameHeight)); h > 0 {
		d.height = h
	}
	return nil
}

// Close releases the device.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	d.mat.Close()
	return d.cap.Close()
}
