package observer

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/teslashibe/drone-observer/internal/log"
	"github.com/teslashibe/drone-observer/pkg/camera"
	"github.com/teslashibe/drone-observer/pkg/detection"
	"github.com/teslashibe/drone-observer/pkg/geom"
)

// mockController records registrations and picture requests
type mockController struct {
	mu        sync.Mutex
	addErr    error
	observers []camera.Observer[detection.Result]
	pictures  []camera.CameraID
}

func (m *mockController) AddObserver(o camera.Observer[detection.Result]) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.addErr != nil {
		return m.addErr
	}
	m.observers = append(m.observers, o)
	return nil
}

func (m *mockController) TakePicture(id camera.CameraID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pictures = append(m.pictures, id)
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray16(image.Rect(0, 0, 4, 4))
	img.SetGray16(1, 1, color.Gray16{Y: 1000})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func validImages(t *testing.T) []camera.RawImage {
	t.Helper()
	return []camera.RawImage{{Data: pngBytes(t)}, {Data: pngBytes(t)}}
}

func newObserver(t *testing.T, id camera.CameraID, det detection.Detector) (*DroneCameraObserver, *mockController) {
	t.Helper()
	ctrl := &mockController{}
	o, err := New(id, ctrl, WithDetector(det), WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return o, ctrl
}

func TestNew_RegistersWithController(t *testing.T) {
	o, ctrl := newObserver(t, camera.ID(3), detection.NewMock(geom.V(0, 0, 0)))

	if len(ctrl.observers) != 1 {
		t.Fatalf("registered observers: got %d, want 1", len(ctrl.observers))
	}
	if ctrl.observers[0] != camera.Observer[detection.Result](o) {
		t.Error("controller should hold the constructed observer")
	}
	if o.ID() != camera.ID(3) {
		t.Errorf("ID: got %v, want 3", o.ID())
	}
}

func TestNew_RegistrationFailure(t *testing.T) {
	ctrl := &mockController{addErr: camera.ErrClosed}

	o, err := New(camera.ID(1), ctrl)
	if o != nil {
		t.Error("observer should not exist when registration fails")
	}
	if !errors.Is(err, camera.ErrClosed) {
		t.Errorf("error: got %v, want wrapping camera.ErrClosed", err)
	}
}

func TestNew_NilController(t *testing.T) {
	if _, err := New(camera.ID(1), nil); !errors.Is(err, ErrNilController) {
		t.Errorf("error: got %v, want ErrNilController", err)
	}
}

func TestInitialState(t *testing.T) {
	o, _ := newObserver(t, camera.ID(3), detection.NewMock(geom.V(1, 1, 1)))

	if o.IsRobotFound() {
		t.Error("new observer should not have found the robot")
	}
	if s := o.Snapshot(); s.Detections != 0 || s.Completed != 0 {
		t.Errorf("Snapshot counters: got %+v, want zero", s)
	}
}

func TestTakePicture_DelegatesWithOwnID(t *testing.T) {
	o, ctrl := newObserver(t, camera.ID(3), detection.NewMock(geom.V(0, 0, 0)))

	o.TakePicture()
	o.TakePicture()

	if len(ctrl.pictures) != 2 {
		t.Fatalf("pictures: got %d, want 2", len(ctrl.pictures))
	}
	for _, id := range ctrl.pictures {
		if id != camera.ID(3) {
			t.Errorf("picture requested for %v, want 3", id)
		}
	}
}

func TestProcessImages_Guard(t *testing.T) {
	tests := []struct {
		name     string
		observer camera.CameraID
		source   camera.CameraID
		wantOK   bool
	}{
		{"same camera", camera.ID(3), camera.ID(3), true},
		{"other camera", camera.ID(3), camera.ID(7), false},
		{"camera zero vs three", camera.ID(3), camera.ID(0), false},
		{"wildcard source", camera.ID(3), camera.AnyCamera, true},
		{"legacy negative source", camera.ID(3), camera.ID(-1), true},
		{"wildcard observer", camera.ID(-1), camera.ID(5), true},
		{"wildcard both", camera.AnyCamera, camera.AnyCamera, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			det := detection.NewMock(geom.V(1, 2, 3))
			o, _ := newObserver(t, tt.observer, det)

			res, ok, err := o.ProcessImages(context.Background(), tt.source, geom.V(0, 0, 0), validImages(t), camera.Details{})
			if err != nil {
				t.Fatalf("ProcessImages: %v", err)
			}
			if ok != tt.wantOK {
				t.Fatalf("ok: got %v, want %v", ok, tt.wantOK)
			}

			wantCalls := 0
			if tt.wantOK {
				wantCalls = 1
				if !res.Found || res.Position != geom.V(1, 2, 3) {
					t.Errorf("result: got %+v, want found at (1,2,3)", res)
				}
			} else if res != (detection.Result{}) {
				t.Errorf("not-applicable result should be zero, got %+v", res)
			}
			if det.CallCount() != wantCalls {
				t.Errorf("detector calls: got %d, want %d", det.CallCount(), wantCalls)
			}
			if o.IsRobotFound() {
				t.Error("ProcessImages must not change observer state")
			}
		})
	}
}

func TestProcessImages_FoundScenario(t *testing.T) {
	det := detection.NewMock(geom.V(1.1, 2.0, 0.5))
	o, _ := newObserver(t, camera.ID(3), det)

	res, ok, err := o.ProcessImages(context.Background(), camera.ID(3), geom.V(1.0, 2.0, 0.5), validImages(t), camera.Details{})
	if err != nil || !ok {
		t.Fatalf("ProcessImages: ok=%v err=%v", ok, err)
	}
	if !res.Found || res.Position != geom.V(1.1, 2.0, 0.5) {
		t.Fatalf("result: got %+v", res)
	}

	calls := det.Calls()
	if len(calls) != 1 {
		t.Fatalf("detector calls: got %d, want 1", len(calls))
	}
	if calls[0].Images != 2 {
		t.Errorf("detector images: got %d, want 2", calls[0].Images)
	}
	if calls[0].Position != geom.V(1.0, 2.0, 0.5) {
		t.Errorf("detector position: got %v, want capture position", calls[0].Position)
	}

	o.ImageProcessingComplete(res)

	if !o.IsRobotFound() {
		t.Fatal("robot should be found after completion")
	}
	if got := o.GetRobotPosition(); got != geom.V(1.1, 2.0, 0.5) {
		t.Errorf("position: got %v, want (1.1, 2.0, 0.5)", got)
	}
}

func TestProcessImages_NotFoundVerdict(t *testing.T) {
	det := &detection.Mock{Verdict: detection.Result{Found: false, Position: geom.V(9, 9, 9)}}
	o, _ := newObserver(t, camera.ID(0), det)

	res, ok, err := o.ProcessImages(context.Background(), camera.ID(0), geom.V(0, 0, 0), validImages(t), nil)
	if err != nil || !ok {
		t.Fatalf("ProcessImages: ok=%v err=%v", ok, err)
	}
	if res.Found || res.Position != (geom.Vector3{}) {
		t.Errorf("not-found result should carry no position, got %+v", res)
	}
}

func TestProcessImages_Errors(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name    string
		images  func(t *testing.T) []camera.RawImage
		det     *detection.Mock
		wantErr error
		calls   int
	}{
		{
			name:    "one image",
			images:  func(t *testing.T) []camera.RawImage { return validImages(t)[:1] },
			det:     detection.NewMock(geom.V(0, 0, 0)),
			wantErr: ErrImageCount,
		},
		{
			name: "three images",
			images: func(t *testing.T) []camera.RawImage {
				return append(validImages(t), camera.RawImage{Data: pngBytes(t)})
			},
			det:     detection.NewMock(geom.V(0, 0, 0)),
			wantErr: ErrImageCount,
		},
		{
			name: "garbage visual",
			images: func(t *testing.T) []camera.RawImage {
				imgs := validImages(t)
				imgs[0] = camera.RawImage{Data: []byte("not an image")}
				return imgs
			},
			det:     detection.NewMock(geom.V(0, 0, 0)),
			wantErr: ErrDecode,
		},
		{
			name: "empty depth",
			images: func(t *testing.T) []camera.RawImage {
				imgs := validImages(t)
				imgs[1] = camera.RawImage{}
				return imgs
			},
			det:     detection.NewMock(geom.V(0, 0, 0)),
			wantErr: camera.ErrEmptyImage,
		},
		{
			name:    "detector failure",
			images:  validImages,
			det:     detection.WithError(boom),
			wantErr: boom,
			calls:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, _ := newObserver(t, camera.ID(2), tt.det)

			_, ok, err := o.ProcessImages(context.Background(), camera.ID(2), geom.V(0, 0, 0), tt.images(t), nil)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
			if ok {
				t.Error("ok should be false on failure")
			}
			if tt.det.CallCount() != tt.calls {
				t.Errorf("detector calls: got %d, want %d", tt.det.CallCount(), tt.calls)
			}
			if o.IsRobotFound() {
				t.Error("a failed capture must not mark the robot found")
			}
		})
	}
}

func TestProcessImages_DetectorErrorIsWrapped(t *testing.T) {
	o, _ := newObserver(t, camera.ID(2), detection.WithError(detection.ErrNoDepth))

	_, _, err := o.ProcessImages(context.Background(), camera.ID(2), geom.V(0, 0, 0), validImages(t), nil)
	if !errors.Is(err, ErrDetect) || !errors.Is(err, detection.ErrNoDepth) {
		t.Errorf("error: got %v, want ErrDetect wrapping ErrNoDepth", err)
	}
}

func TestProcessImages_CanceledContext(t *testing.T) {
	det := detection.NewMock(geom.V(0, 0, 0))
	o, _ := newObserver(t, camera.ID(1), det)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok, err := o.ProcessImages(ctx, camera.ID(1), geom.V(0, 0, 0), validImages(t), nil)
	if !errors.Is(err, context.Canceled) || ok {
		t.Errorf("got ok=%v err=%v, want context.Canceled", ok, err)
	}
	if det.CallCount() != 0 {
		t.Error("detector should not run after cancellation")
	}
}

func TestImageProcessingComplete_Transitions(t *testing.T) {
	o, _ := newObserver(t, camera.ID(1), detection.NewMock(geom.V(0, 0, 0)))

	o.ImageProcessingComplete(detection.Result{Found: false})
	if o.IsRobotFound() {
		t.Fatal("not-found completion must leave state not found")
	}

	o.ImageProcessingComplete(detection.Result{Found: true, Position: geom.V(1, 2, 3)})
	if !o.IsRobotFound() || o.GetRobotPosition() != geom.V(1, 2, 3) {
		t.Fatalf("after found: got found=%v pos=%v", o.IsRobotFound(), o.GetRobotPosition())
	}

	// Never reverts
	o.ImageProcessingComplete(detection.Result{Found: false, Position: geom.V(7, 7, 7)})
	if !o.IsRobotFound() {
		t.Error("found must not revert to false")
	}
	if o.GetRobotPosition() != geom.V(1, 2, 3) {
		t.Errorf("not-found completion changed position to %v", o.GetRobotPosition())
	}

	// Repeated found overwrites
	o.ImageProcessingComplete(detection.Result{Found: true, Position: geom.V(4, 5, 6)})
	if o.GetRobotPosition() != geom.V(4, 5, 6) {
		t.Errorf("position: got %v, want overwrite to (4,5,6)", o.GetRobotPosition())
	}

	s := o.Snapshot()
	if s.Detections != 2 || s.Completed != 4 {
		t.Errorf("Snapshot: got detections=%d completed=%d, want 2 and 4", s.Detections, s.Completed)
	}
	if s.LastSeen.IsZero() {
		t.Error("LastSeen should be set after a detection")
	}
}

func TestProcessImages_ConcurrentCallsArePure(t *testing.T) {
	det := detection.NewMock(geom.V(1, 1, 1))
	o, _ := newObserver(t, camera.ID(4), det)
	images := validImages(t)

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := o.ProcessImages(context.Background(), camera.ID(4), geom.V(0, 0, 0), images, nil); err != nil {
				t.Errorf("ProcessImages: %v", err)
			}
		}()
	}
	wg.Wait()

	if det.CallCount() != 32 {
		t.Errorf("detector calls: got %d, want 32", det.CallCount())
	}
	if o.IsRobotFound() {
		t.Error("ProcessImages must not change observer state")
	}
}

func TestWithDecoder(t *testing.T) {
	var decoded [][]byte
	dec := camera.DecoderFunc(func(raw camera.RawImage) (image.Image, error) {
		decoded = append(decoded, raw.Data)
		return image.NewGray16(image.Rect(0, 0, 1, 1)), nil
	})
	det := detection.NewMock(geom.V(1, 2, 3))

	o, err := New(camera.ID(0), &mockController{}, WithDetector(det), WithDecoder(dec), WithLogger(log.Discard()))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	images := []camera.RawImage{{Data: []byte("visual")}, {Data: []byte("depth")}}
	res, ok, err := o.ProcessImages(context.Background(), camera.ID(0), geom.V(0, 0, 0), images, nil)
	if err != nil || !ok {
		t.Fatalf("ProcessImages: ok=%v err=%v", ok, err)
	}
	if len(decoded) != 2 || string(decoded[0]) != "visual" || string(decoded[1]) != "depth" {
		t.Errorf("decoder saw %q, want visual then depth", decoded)
	}
	if !res.Found || res.Position != geom.V(1, 2, 3) {
		t.Errorf("result: got %+v", res)
	}
}
