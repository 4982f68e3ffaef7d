package webui

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mzyy94/ebotlcd/internal/config"
	"github.com/mzyy94/ebotlcd/internal/display"
	"github.com/mzyy94/ebotlcd/internal/joint"
	"github.com/mzyy94/ebotlcd/internal/lcd"
	"github.com/mzyy94/ebotlcd/internal/pattern"
	"github.com/mzyy94/ebotlcd/internal/usblink/usbfake"
)

type testEnv struct {
	h        http.Handler
	disp     *display.Display
	canvas   *display.Canvas
	settings *config.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	p := lcd.DefaultProfile()
	host := usbfake.NewHost(p.VendorID, p.ProductID, &usbfake.Handle{})
	d, err := display.New(host, p, nil)
	if err != nil {
		t.Fatal(err)
	}
	c := display.NewCanvas(p.FrameSize())
	s := config.NewMemoryStore()
	return &testEnv{h: NewHandler(d, c, s, "desk-bot"), disp: d, canvas: c, settings: s}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	e.h.ServeHTTP(rec, req)
	return rec
}

func TestStatus(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do("GET", "/api/status", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	var resp statusResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Device != "desk-bot" || resp.Profile.Packets != 340 || resp.Profile.VendorID != "1001" {
		t.Errorf("status = %+v", resp)
	}
	if resp.Display.Connected {
		t.Error("reported connected before Connect")
	}
	if resp.Pattern != config.DefaultSettings().Pattern {
		t.Errorf("pattern = %q", resp.Pattern)
	}
}

func TestPutJointClamps(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do("PUT", "/api/joint", `{"enable":true,"angles":[40,0,0,0,-200,10]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body)
	}
	want := joint.Config{Enable: true, Angles: [joint.ServoCount]float32{15, 0, 0, 0, -180, 10}}
	if got := e.disp.Joints().Get(); got != want {
		t.Errorf("joints = %+v, want %+v", got, want)
	}
	if got := e.settings.Get().Joint; got != want {
		t.Errorf("stored joints = %+v, want %+v", got, want)
	}

	rec = e.do("GET", "/api/joint", "")
	var got joint.Config
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got != want {
		t.Errorf("GET /api/joint = %+v, want %+v", got, want)
	}

	if rec := e.do("PUT", "/api/joint", "{"); rec.Code != http.StatusBadRequest {
		t.Errorf("bad body code = %d, want 400", rec.Code)
	}
}

func TestPutPattern(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do("PUT", "/api/pattern", `{"name":"stripes"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body)
	}
	pix, gen := e.canvas.Snapshot()
	if gen != 1 || !bytes.Equal(pix, pattern.Stripes(lcd.PanelWidth, lcd.PanelHeight)) {
		t.Error("canvas does not hold the stripes pattern")
	}
	if e.settings.Get().Pattern != "stripes" {
		t.Errorf("stored pattern = %q", e.settings.Get().Pattern)
	}

	if rec := e.do("PUT", "/api/pattern", `{"name":"plaid"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("unknown pattern code = %d, want 400", rec.Code)
	}
	if _, gen := e.canvas.Snapshot(); gen != 1 {
		t.Error("canvas changed on rejected pattern")
	}
}

func TestPutFrame(t *testing.T) {
	e := newTestEnv(t)
	src := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := 0; y < 16; y++ {
		for x := 0; x < 16; x++ {
			src.Set(x, y, color.RGBA{0, 255, 0, 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	rec := e.do("PUT", "/api/frame", buf.String())
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body)
	}
	pix, _ := e.canvas.Snapshot()
	last := len(pix) - 3
	if pix[last] != 0 || pix[last+1] != 255 || pix[last+2] != 0 {
		t.Errorf("last pixel = %v, want green", pix[last:])
	}

	if rec := e.do("PUT", "/api/frame", "not an image"); rec.Code != http.StatusBadRequest {
		t.Errorf("garbage code = %d, want 400", rec.Code)
	}
}

func TestSettings(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do("PUT", "/api/settings", `{"pattern":"gradient","fps":5,"joint":{"enable":true,"angles":[0,0,0,0,0,100]}}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d: %s", rec.Code, rec.Body)
	}
	s := e.settings.Get()
	if s.Pattern != "gradient" || s.FPS != 5 || s.Joint.Angles[5] != 90 {
		t.Errorf("settings = %+v", s)
	}
	if !e.disp.Joints().Get().Enable {
		t.Error("joint state not applied")
	}

	rec = e.do("GET", "/api/settings", "")
	var got config.Settings
	if err := json.NewDecoder(rec.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got != s {
		t.Errorf("GET /api/settings = %+v, want %+v", got, s)
	}

	if rec := e.do("PUT", "/api/settings", `{"fps":0}`); rec.Code != http.StatusBadRequest {
		t.Errorf("fps 0 code = %d, want 400", rec.Code)
	}
	if rec := e.do("PUT", "/api/settings", `{"imagePath":"/nonexistent/face.png"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("missing image code = %d, want 400", rec.Code)
	}
	if e.settings.Get() != s {
		t.Error("rejected settings were stored")
	}
}

func TestIndexPage(t *testing.T) {
	e := newTestEnv(t)
	rec := e.do("GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status code = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "<title>ebotlcd</title>") {
		t.Error("index page not served")
	}
}
