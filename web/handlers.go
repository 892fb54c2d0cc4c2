package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/png"
	"net/http"
	"strconv"
	"strings"

	"github.com/ericpauley/go-quantize/quantize"
	"github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/nfnt/resize"
	"github.com/pkg/errors"
	"github.com/vincent-petithory/dataurl"
	"golang.org/x/net/trace"

	"github.com/cambragol/fission-ce/art"
	"github.com/cambragol/fission-ce/cache"
	"github.com/cambragol/fission-ce/fid"
	"github.com/cambragol/fission-ce/frm"
	"github.com/cambragol/fission-ce/pal"
	"github.com/cambragol/fission-ce/paths"
)

// MaxScale bounds the scale query parameter.
const MaxScale = 8

// ThumbnailSize is the bounding box of thumbnails embedded in metadata.
const ThumbnailSize = 64

type Handler struct {
	catalog *art.Catalog
	cache   *cache.Cache
	layers  *paths.Layers
	palette color.Palette
}

// NewHandler constructs a web handler serving art from c through ch. The
// layers are only used to find out when art files were last modified; they
// may be nil. Frames are drawn with p, or with frm.Palette if p is nil.
func NewHandler(c *art.Catalog, ch *cache.Cache, l *paths.Layers, p color.Palette) *Handler {
	if p == nil {
		p = frm.Palette
	}
	return &Handler{
		catalog: c,
		cache:   ch,
		layers:  l,
		palette: pal.WithTransparent(p),
	}
}

// parseFID accepts a FID in decimal, or in hex with a 0x prefix.
func parseFID(s string) (fid.FID, error) {
	base := 10
	if strings.HasPrefix(s, "0x") {
		s, base = s[2:], 16
	}
	v, err := strconv.ParseUint(s, base, 32)
	if err != nil {
		return 0, err
	}
	return fid.FID(v), nil
}

// queryInt returns the integer query parameter name, or def if it is absent.
func queryInt(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}

func (h *Handler) setLastModified(w http.ResponseWriter, f fid.FID) {
	if h.layers == nil {
		return
	}
	p, err := h.catalog.FilePath(f)
	if err != nil {
		return
	}
	if s, err := h.layers.Stat(p); err == nil {
		w.Header().Set("Last-Modified", s.ModTime().Format(http.TimeFormat))
	}
}

// notModified answers a conditional request whose etag still matches.
func notModified(w http.ResponseWriter, r *http.Request, etag string) bool {
	if r.Header.Get("If-None-Match") != etag {
		return false
	}
	w.Header().Set("Cache-Control", "public; max-age=36000") // 36000 = 10h
	w.Header().Set("ETag", etag)
	w.WriteHeader(http.StatusNotModified)
	return true
}

// lockError maps a failure to load art to an HTTP status.
func lockError(w http.ResponseWriter, tr trace.Trace, err error) {
	tr.LazyPrintf("%v", err)
	tr.SetError()
	switch errors.Cause(err) {
	case art.ErrInvalidFID, art.ErrNoFrame:
		http.Error(w, err.Error(), http.StatusNotFound)
	case cache.ErrTooLarge, cache.ErrFull:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		glog.Errorf("web: %v", err)
		http.Error(w, "failed to load art", http.StatusInternalServerError)
	}
}

// scaled enlarges img by an integer factor and reduces it back to a palette
// of at most 256 colours, the first of them transparent.
func scaled(img image.Image, scale int) *image.Paletted {
	b := img.Bounds()
	big := resize.Resize(uint(b.Dx()*scale), uint(b.Dy()*scale), img, resize.NearestNeighbor)

	// Up to 255 colours plus 1 space for transparency. The quantizer sizes
	// its palette by the capacity of the one passed in.
	q := quantize.MedianCutQuantizer{}
	p := q.Quantize(make(color.Palette, 0, 255), big)
	dst := image.NewPaletted(big.Bounds(), append(color.Palette{color.Transparent}, p...))
	draw.Draw(dst, dst.Bounds(), big, big.Bounds().Min, draw.Src)
	return dst
}

func (h *Handler) frameHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("web.frame", r.URL.Path)
	defer tr.Finish()

	vars := mux.Vars(r)
	f, err := parseFID(vars["fid"])
	if err != nil {
		http.Error(w, "fid not a number", http.StatusBadRequest)
		return
	}
	frame, err := queryInt(r, "frame", 0)
	if err != nil {
		http.Error(w, "frame not a number", http.StatusBadRequest)
		return
	}
	rotation, err := queryInt(r, "rotation", int(f.Rotation()))
	if err != nil {
		http.Error(w, "rotation not a number", http.StatusBadRequest)
		return
	}
	scale, err := queryInt(r, "scale", 1)
	if err != nil || scale < 1 || scale > MaxScale {
		http.Error(w, "bad scale", http.StatusBadRequest)
		return
	}

	generation := 1 // bump if the way we generate it changes
	mime := "image/png"
	etag := fmt.Sprintf(`W/"frame:%d:%s:%08x:%d:%d:%d:%s"`, generation, h.catalog.Language(), uint32(f), frame, rotation, scale, mime)
	if notModified(w, r, etag) {
		return
	}

	var img image.Image
	pimg, err := art.Image(h.cache, f, frame, rotation, h.palette)
	if err != nil {
		lockError(w, tr, err)
		return
	}
	img = pimg
	if scale > 1 {
		img = scaled(pimg, scale)
	}
	tr.LazyPrintf("%s frame %d rotation %d: %v", f, frame, rotation, img.Bounds())

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		encodeError(w, tr, f, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public; max-age=3600")
	w.Header().Set("ETag", etag)
	h.setLastModified(w, f)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		glog.V(1).Infof("web: writing frame %s: %v", f, err)
	}
}

// encodeError reports an image that could not be encoded. Nothing has been
// written to w yet.
func encodeError(w http.ResponseWriter, tr trace.Trace, f fid.FID, err error) {
	glog.Errorf("web: encoding %s: %v", f, err)
	tr.LazyPrintf("encoding: %v", err)
	tr.SetError()
	http.Error(w, "could not encode image", http.StatusInternalServerError)
}

// animation lays out every frame of one rotation of s on a shared canvas.
// Frame shifts accumulate; each frame is anchored at its bottom centre.
func animation(s *frm.Sheet, rotation int, p color.Palette) ([]*image.Paletted, error) {
	type placed struct {
		f *frm.Frame
		r image.Rectangle
	}

	var frames []placed
	var union image.Rectangle
	x, y := 0, 0
	for i := 0; i < s.Frames(); i++ {
		f := s.Frame(i, rotation)
		if f == nil {
			return nil, errors.Wrapf(art.ErrNoFrame, "frame %d rotation %d", i, rotation)
		}
		x += f.X
		y += f.Y
		min := image.Pt(x-f.Width/2, y-f.Height+1)
		r := image.Rectangle{Min: min, Max: min.Add(image.Pt(f.Width, f.Height))}
		frames = append(frames, placed{f: f, r: r})
		union = union.Union(r)
	}

	canvas := image.Rectangle{Max: union.Size()}
	images := make([]*image.Paletted, 0, len(frames))
	for _, pf := range frames {
		dst := image.NewPaletted(canvas, p)
		src := frm.Image(pf.f, p)
		draw.Draw(dst, pf.r.Sub(union.Min), src, image.Point{}, draw.Src)
		images = append(images, dst)
	}
	return images, nil
}

func (h *Handler) animHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("web.anim", r.URL.Path)
	defer tr.Finish()

	vars := mux.Vars(r)
	f, err := parseFID(vars["fid"])
	if err != nil {
		http.Error(w, "fid not a number", http.StatusBadRequest)
		return
	}
	rotation, err := strconv.Atoi(vars["rotation"])
	if err != nil {
		http.Error(w, "rotation not a number", http.StatusBadRequest)
		return
	}
	scale, err := queryInt(r, "scale", 1)
	if err != nil || scale < 1 || scale > MaxScale {
		http.Error(w, "bad scale", http.StatusBadRequest)
		return
	}

	generation := 1 // bump if the way we generate it changes
	mime := "image/gif"
	etag := fmt.Sprintf(`W/"anim:%d:%s:%08x:%d:%d:%s"`, generation, h.catalog.Language(), uint32(f), rotation, scale, mime)
	if notModified(w, r, etag) {
		return
	}

	s, handle, err := art.Lock(h.cache, f)
	if err != nil {
		lockError(w, tr, err)
		return
	}
	images, err := animation(s, rotation, h.palette)
	fps := s.FramesPerSecond()
	art.Unlock(h.cache, handle)
	if err != nil {
		lockError(w, tr, err)
		return
	}

	if len(images) == 0 {
		http.Error(w, "no frames", http.StatusNotFound)
		return
	}

	g := gif.GIF{}
	delay := 100 / fps
	if delay < 1 {
		delay = 1
	}
	for _, img := range images {
		if scale > 1 {
			img = scaled(img, scale)
		}
		g.Image = append(g.Image, img)
		g.Delay = append(g.Delay, delay)
		g.Disposal = append(g.Disposal, gif.DisposalBackground)
	}
	g.BackgroundIndex = 0 // transparent
	tr.LazyPrintf("%s rotation %d: %d frames at %d fps", f, rotation, len(images), fps)

	var buf bytes.Buffer
	if err := gif.EncodeAll(&buf, &g); err != nil {
		encodeError(w, tr, f, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "public; max-age=3600")
	w.Header().Set("ETag", etag)
	h.setLastModified(w, f)
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		glog.V(1).Infof("web: writing animation %s: %v", f, err)
	}
}

type FrameMeta struct {
	Width   int `json:"width"`
	Height  int `json:"height"`
	OffsetX int `json:"offset_x"`
	OffsetY int `json:"offset_y"`
}

type RotationMeta struct {
	OffsetX int         `json:"offset_x"`
	OffsetY int         `json:"offset_y"`
	Frames  []FrameMeta `json:"frames"`
}

// SheetMeta describes a frame sheet and the FID naming it.
type SheetMeta struct {
	FID             uint32         `json:"fid"`
	Category        string         `json:"category"`
	ID              int            `json:"id"`
	Anim            int            `json:"anim"`
	Weapon          int            `json:"weapon"`
	Path            string         `json:"path"`
	FramesPerSecond int            `json:"fps"`
	ActionFrame     int            `json:"action_frame"`
	Frames          int            `json:"frames"`
	DecodedSize     int            `json:"decoded_size"`
	Rotations       []RotationMeta `json:"rotations"`
	Thumbnail       string         `json:"thumbnail,omitempty"`
}

func sheetMeta(s *frm.Sheet) SheetMeta {
	m := SheetMeta{
		FramesPerSecond: s.FramesPerSecond(),
		ActionFrame:     s.ActionFrameIndex(),
		Frames:          s.Frames(),
		DecodedSize:     s.DecodedSize(),
	}
	for rot := 0; rot < frm.RotationCount; rot++ {
		x, y, _ := s.RotationOffsets(rot)
		rm := RotationMeta{OffsetX: x, OffsetY: y}
		for i := 0; i < s.Frames(); i++ {
			f := s.Frame(i, rot)
			if f == nil {
				break
			}
			rm.Frames = append(rm.Frames, FrameMeta{Width: f.Width, Height: f.Height, OffsetX: f.X, OffsetY: f.Y})
		}
		m.Rotations = append(m.Rotations, rm)
	}
	return m
}

// thumbnail returns the first frame of s, shrunk to fit ThumbnailSize, as a
// PNG data URL.
func thumbnail(s *frm.Sheet, p color.Palette) (string, error) {
	f := s.Frame(0, 0)
	if f == nil {
		return "", nil
	}
	img := resize.Thumbnail(ThumbnailSize, ThumbnailSize, frm.Image(f, p), resize.NearestNeighbor)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", errors.Wrap(err, "encoding thumbnail")
	}
	return dataurl.New(buf.Bytes(), "image/png").String(), nil
}

func (h *Handler) metaHandler(w http.ResponseWriter, r *http.Request) {
	tr := trace.New("web.meta", r.URL.Path)
	defer tr.Finish()

	vars := mux.Vars(r)
	f, err := parseFID(vars["fid"])
	if err != nil {
		http.Error(w, "fid not a number", http.StatusBadRequest)
		return
	}

	p, err := h.catalog.FilePath(f)
	if err != nil {
		lockError(w, tr, err)
		return
	}

	s, handle, err := art.Lock(h.cache, f)
	if err != nil {
		lockError(w, tr, err)
		return
	}
	m := sheetMeta(s)
	m.Thumbnail, err = thumbnail(s, h.palette)
	art.Unlock(h.cache, handle)
	if err != nil {
		lockError(w, tr, err)
		return
	}

	m.FID = uint32(f)
	m.Category = f.Category().Name()
	m.ID = f.ID()
	m.Anim = f.Anim()
	m.Weapon = f.Weapon()
	m.Path = p

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "public; max-age=3600")
	h.setLastModified(w, f)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(&m); err != nil {
		glog.Errorf("web: encoding metadata for %s: %v", f, err)
	}
}

// ListEntry is one row of a category index.
type ListEntry struct {
	ID      int    `json:"id"`
	Name    string `json:"name"`
	FID     uint32 `json:"fid"`
	Variant bool   `json:"variant,omitempty"`
}

func (h *Handler) listHandler(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var category fid.Category
	found := false
	for i := 0; i < fid.CategoryCount; i++ {
		if c := fid.Category(i); c.Name() == vars["category"] {
			category, found = c, true
			break
		}
	}
	if !found {
		http.Error(w, "unknown category", http.StatusNotFound)
		return
	}
	idx := h.catalog.Index(category)
	if idx == nil {
		http.Error(w, "category not loaded", http.StatusNotFound)
		return
	}

	entries := make([]ListEntry, 0, idx.Len())
	for i, name := range idx.Names() {
		if name == "" {
			continue
		}
		entries = append(entries, ListEntry{
			ID:      i,
			Name:    name,
			FID:     uint32(fid.Pack(category, i, 0, 0, fid.NE)),
			Variant: i >= idx.OriginalCount(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		glog.Errorf("web: encoding %s list: %v", category, err)
	}
}

// statsHandler reports cache occupancy.
func (h *Handler) statsHandler(w http.ResponseWriter, r *http.Request) {
	hits, misses := h.cache.Stats()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "entries: %d\nsize: %d/%d\nhits: %d\nmisses: %d\n", h.cache.Len(), h.cache.Size(), h.cache.Capacity(), hits, misses)
}

func (h *Handler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/frame/{fid:(?:0x)?[0-9a-fA-F]+}", h.frameHandler)
	r.HandleFunc("/anim/{fid:(?:0x)?[0-9a-fA-F]+}-{rotation:[0-5]}.gif", h.animHandler)
	r.HandleFunc("/meta/{fid:(?:0x)?[0-9a-fA-F]+}", h.metaHandler)
	r.HandleFunc("/list/{category:[a-z]+}", h.listHandler)
	r.HandleFunc("/stats", h.statsHandler)
}
