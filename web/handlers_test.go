package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image/gif"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/gorilla/mux"

	"github.com/cambragol/fission-ce/art"
	"github.com/cambragol/fission-ce/config"
	"github.com/cambragol/fission-ce/fid"
	"github.com/cambragol/fission-ce/frm"
	"github.com/cambragol/fission-ce/paths"
	"github.com/cambragol/fission-ce/ttesting"
)

var lists = map[string]string{
	"art/items/items.lst":       "foo.frm\nmissing.frm\n",
	"art/critters/critters.lst": "hmjmps,0,1\n",
	"art/scenery/scenery.lst":   "\n",
	"art/walls/walls.lst":       "\n",
	"art/tiles/tiles.lst":       "\n",
	"art/misc/misc.lst":         "\n",
	"art/intrface/intrface.lst": "menu.frm\n",
	"art/inven/inven.lst":       "\n",
	"art/heads/heads.lst":       "\n",
	"art/backgrnd/backgrnd.lst": "\n",
	"art/skilldex/skilldex.lst": "\n",
}

func solid(w, h int, v byte) frm.Frame {
	return frm.Frame{Width: w, Height: h, Pixels: bytes.Repeat([]byte{v}, w*h)}
}

func sheetBytes(t *testing.T) []byte {
	t.Helper()
	var rots [frm.RotationCount]frm.RotationFrames
	rots[0].Frames = []frm.Frame{solid(4, 2, 1), solid(3, 2, 2), solid(1, 1, 3)}
	s, err := frm.NewSheet(0, 1, rots)
	if err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	var b bytes.Buffer
	if err := frm.EncodeSheet(&b, s); err != nil {
		t.Fatalf("EncodeSheet: %v", err)
	}
	return b.Bytes()
}

func newRouter(t *testing.T) *mux.Router {
	t.Helper()
	return newRouterWith(t, nil)
}

func newRouterWith(t *testing.T, extra map[string][]byte) *mux.Router {
	t.Helper()
	fs := memfs.New()
	files := map[string][]byte{
		"art/items/foo.frm":         sheetBytes(t),
		"art/intrface/menu_800.frm": sheetBytes(t),
	}
	for name, content := range lists {
		files[name] = []byte(content)
	}
	for name, content := range extra {
		files[name] = content
	}
	for name, content := range files {
		if err := util.WriteFile(fs, name, content, 0644); err != nil {
			t.Fatalf("failed to write %s: %v", name, err)
		}
	}
	l := paths.New(fs)

	cfg := config.Default()
	c, err := art.New(l, cfg)
	if err != nil {
		t.Fatalf("art.New: %v", err)
	}
	r := mux.NewRouter()
	NewHandler(c, art.NewCache(c, cfg), l, nil).RegisterRoutes(r)
	return r
}

func get(r http.Handler, url string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest("GET", url, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

var foo = fid.Pack(fid.Items, 0, 0, 0, fid.NE)

func TestParseFID(t *testing.T) {
	for _, tc := range []struct {
		in   string
		want uint32
		ok   bool
	}{
		{"42", 42, true},
		{"0x0500002a", 0x0500002a, true},
		{"010", 10, true},
		{"ff", 0, false},
		{"0x1ffffffff", 0, false},
	} {
		t.Run(tc.in, func(t *testing.T) {
			got, err := parseFID(tc.in)
			if (err == nil) != tc.ok {
				t.Fatalf("parseFID(%q) error = %v; want ok = %v", tc.in, err, tc.ok)
			}
			if tc.ok && uint32(got) != tc.want {
				t.Errorf("got %d; want %d", got, tc.want)
			}
		})
	}
}

func TestFrame(t *testing.T) {
	r := newRouter(t)

	rec := get(r, fmt.Sprintf("/frame/%d", uint32(foo)), nil)
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	ttesting.AssertEqualString(t, "content type", rec.Header().Get("Content-Type"), "image/png")
	ttesting.AssertEqualBool(t, "last modified set", rec.Header().Get("Last-Modified") != "", true)
	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "width", img.Bounds().Dx(), 4)
	ttesting.AssertEqualInt(t, "height", img.Bounds().Dy(), 2)

	etag := rec.Header().Get("ETag")
	rec = get(r, fmt.Sprintf("/frame/0x%08x", uint32(foo)), http.Header{"If-None-Match": {etag}})
	ttesting.AssertEqualInt(t, "conditional request", rec.Code, http.StatusNotModified)

	rec = get(r, fmt.Sprintf("/frame/%d?frame=1&scale=3", uint32(foo)), nil)
	ttesting.AssertEqualInt(t, "scaled status", rec.Code, http.StatusOK)
	img, err = png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("png.Decode: %v", err)
	}
	ttesting.AssertEqualInt(t, "scaled width", img.Bounds().Dx(), 9)
	ttesting.AssertEqualInt(t, "scaled height", img.Bounds().Dy(), 6)
}

func TestFrameErrors(t *testing.T) {
	r := newRouter(t)
	for _, tc := range []struct {
		url  string
		want int
	}{
		{fmt.Sprintf("/frame/%d?frame=3", uint32(foo)), http.StatusNotFound},
		{fmt.Sprintf("/frame/%d?rotation=6", uint32(foo)), http.StatusNotFound},
		{fmt.Sprintf("/frame/%d?scale=0", uint32(foo)), http.StatusBadRequest},
		{fmt.Sprintf("/frame/%d?frame=x", uint32(foo)), http.StatusBadRequest},
		{fmt.Sprintf("/frame/%d", uint32(fid.Pack(fid.Items, 9, 0, 0, fid.NE))), http.StatusNotFound},
		{"/frame/4294967296", http.StatusBadRequest},
	} {
		t.Run(tc.url, func(t *testing.T) {
			rec := get(r, tc.url, nil)
			if rec.Code != tc.want {
				t.Errorf("got status %d; want %d (%s)", rec.Code, tc.want, rec.Body.String())
			}
		})
	}
}

func TestMissingFileIsServerError(t *testing.T) {
	r := newRouter(t)
	rec := get(r, fmt.Sprintf("/frame/%d", uint32(fid.Pack(fid.Items, 1, 0, 0, fid.NE))), nil)
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusInternalServerError)
}

func TestUnencodableFrameIsServerError(t *testing.T) {
	var rots [frm.RotationCount]frm.RotationFrames
	rots[0].Frames = []frm.Frame{{}}
	s, err := frm.NewSheet(0, 0, rots)
	if err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	var b bytes.Buffer
	if err := frm.EncodeSheet(&b, s); err != nil {
		t.Fatalf("EncodeSheet: %v", err)
	}
	r := newRouterWith(t, map[string][]byte{
		"art/items/items.lst": []byte("foo.frm\nmissing.frm\nempty.frm\n"),
		"art/items/empty.frm": b.Bytes(),
	})

	// PNG cannot hold a 0x0 image.
	rec := get(r, fmt.Sprintf("/frame/%d", uint32(fid.Pack(fid.Items, 2, 0, 0, fid.NE))), nil)
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusInternalServerError)
	ttesting.AssertEqualString(t, "no etag on failure", rec.Header().Get("ETag"), "")
}

func TestAnim(t *testing.T) {
	r := newRouter(t)

	rec := get(r, fmt.Sprintf("/anim/%d-0.gif", uint32(foo)), nil)
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	ttesting.AssertEqualString(t, "content type", rec.Header().Get("Content-Type"), "image/gif")
	g, err := gif.DecodeAll(rec.Body)
	if err != nil {
		t.Fatalf("gif.DecodeAll: %v", err)
	}
	ttesting.AssertEqualInt(t, "frames", len(g.Image), 3)
	ttesting.AssertEqualInt(t, "delay at default rate", g.Delay[0], 100/frm.DefaultFramesPerSecond)
	// Every frame is centred on the same anchor; the widest one sets the
	// canvas.
	ttesting.AssertEqualInt(t, "canvas width", g.Image[2].Bounds().Dx(), 4)
	ttesting.AssertEqualInt(t, "canvas height", g.Image[2].Bounds().Dy(), 2)

	etag := rec.Header().Get("ETag")
	rec = get(r, fmt.Sprintf("/anim/%d-0.gif", uint32(foo)), http.Header{"If-None-Match": {etag}})
	ttesting.AssertEqualInt(t, "conditional request", rec.Code, http.StatusNotModified)

	rec = get(r, fmt.Sprintf("/anim/%d-0.gif?scale=2", uint32(foo)), nil)
	ttesting.AssertEqualInt(t, "scaled status", rec.Code, http.StatusOK)
	g, err = gif.DecodeAll(rec.Body)
	if err != nil {
		t.Fatalf("gif.DecodeAll: %v", err)
	}
	ttesting.AssertEqualInt(t, "scaled canvas width", g.Image[0].Bounds().Dx(), 8)
}

func TestAnimationLayout(t *testing.T) {
	var rots [frm.RotationCount]frm.RotationFrames
	second := solid(2, 2, 1)
	second.X, second.Y = 3, -1
	rots[0].Frames = []frm.Frame{solid(2, 2, 1), second}
	s, err := frm.NewSheet(10, 0, rots)
	if err != nil {
		t.Fatalf("NewSheet: %v", err)
	}
	images, err := animation(s, 0, frm.Palette)
	if err != nil {
		t.Fatalf("animation: %v", err)
	}
	ttesting.AssertEqualInt(t, "frames", len(images), 2)
	// (-1,-1)-(1,1) and (2,-2)-(4,0) span (-1,-2)-(4,1).
	ttesting.AssertEqualInt(t, "width", images[0].Bounds().Dx(), 5)
	ttesting.AssertEqualInt(t, "height", images[0].Bounds().Dy(), 3)
	ttesting.AssertEqualInt(t, "first frame drawn", int(images[0].ColorIndexAt(0, 1)), 1)
	ttesting.AssertEqualInt(t, "first frame leaves the rest clear", int(images[0].ColorIndexAt(3, 0)), 0)
	ttesting.AssertEqualInt(t, "second frame shifted", int(images[1].ColorIndexAt(3, 0)), 1)

	_, err = animation(s, 6, frm.Palette)
	ttesting.AssertEqualBool(t, "bad rotation", err != nil, true)
}

func TestMeta(t *testing.T) {
	r := newRouter(t)

	rec := get(r, fmt.Sprintf("/meta/%d", uint32(foo)), nil)
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	var m SheetMeta
	if err := json.NewDecoder(rec.Body).Decode(&m); err != nil {
		t.Fatalf("decoding metadata: %v", err)
	}
	ttesting.AssertEqualString(t, "category", m.Category, "items")
	ttesting.AssertEqualString(t, "path", m.Path, "art/items/foo.frm")
	ttesting.AssertEqualInt(t, "fps", m.FramesPerSecond, frm.DefaultFramesPerSecond)
	ttesting.AssertEqualInt(t, "action frame", m.ActionFrame, 1)
	ttesting.AssertEqualInt(t, "frames", m.Frames, 3)
	ttesting.AssertEqualInt(t, "rotations", len(m.Rotations), frm.RotationCount)
	ttesting.AssertEqualInt(t, "shared rotation frames", len(m.Rotations[5].Frames), 3)
	ttesting.AssertEqualInt(t, "first frame width", m.Rotations[0].Frames[0].Width, 4)
	ttesting.AssertEqualBool(t, "thumbnail is a data url", strings.HasPrefix(m.Thumbnail, "data:image/png"), true)
}

func TestList(t *testing.T) {
	r := newRouter(t)

	rec := get(r, "/list/intrface", nil)
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	var entries []ListEntry
	if err := json.NewDecoder(rec.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	ttesting.AssertEqualInt(t, "entries", len(entries), 2)
	ttesting.AssertEqualString(t, "variant name", entries[1].Name, "menu_800.frm")
	ttesting.AssertEqualBool(t, "variant flagged", entries[1].Variant, true)
	ttesting.AssertEqualUint32(t, "variant fid", entries[1].FID, uint32(fid.Pack(fid.Interface, 1, 0, 0, fid.NE)))

	rec = get(r, "/list/nowhere", nil)
	ttesting.AssertEqualInt(t, "unknown category", rec.Code, http.StatusNotFound)
}

func TestStats(t *testing.T) {
	r := newRouter(t)
	get(r, fmt.Sprintf("/frame/%d", uint32(foo)), nil)
	get(r, fmt.Sprintf("/frame/%d?frame=1", uint32(foo)), nil)

	rec := get(r, "/stats", nil)
	ttesting.AssertEqualInt(t, "status", rec.Code, http.StatusOK)
	body := rec.Body.String()
	ttesting.AssertEqualBool(t, "one entry", strings.Contains(body, "entries: 1\n"), true)
	ttesting.AssertEqualBool(t, "one hit", strings.Contains(body, "hits: 1\n"), true)
}
