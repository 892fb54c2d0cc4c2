// Command frmweb serves game art over HTTP: frames as PNG, animations as GIF
// and sheet metadata as JSON.
package main

import (
	"flag"
	"image/color"
	"net/http"
	"os"

	"badc0de.net/pkg/flagutil/v1"
	"github.com/common-nighthawk/go-figure"
	"github.com/golang/glog"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"golang.org/x/net/trace"

	"github.com/cambragol/fission-ce/art"
	"github.com/cambragol/fission-ce/config"
	"github.com/cambragol/fission-ce/pal"
	"github.com/cambragol/fission-ce/paths"
	"github.com/cambragol/fission-ce/web"
)

var (
	listenAddress = flag.String("listen_address", ":8080", "http listen address for frmweb")
	baseURL       = flag.String("base_url", "http://localhost:8080", "externally visible URL of this server, used in sitemaps")
	paletteName   = flag.String("palette", "color.pal", "palette file, looked up in the data directories; grayscale if missing")
	gameCfg       = flag.String("game_cfg", "fallout2.cfg", "game configuration file")
	extCfg        = flag.String("ext_cfg", "ddraw.ini", "engine extension configuration file")
	accessLog     = flag.Bool("access_log", true, "whether to log every request to stdout")
	banner        = flag.Bool("banner", true, "whether to print a banner on startup")

	layers = paths.SetupLayerFlag("data_dir")
)

func loadPalette(l *paths.Layers) color.Palette {
	f, err := l.Open(*paletteName)
	if err != nil {
		glog.V(1).Infof("no palette %q, using grayscale: %v", *paletteName, err)
		return pal.Grayscale()
	}
	defer f.Close()
	p, err := pal.Decode(f)
	if err != nil {
		glog.Warningf("bad palette %q, using grayscale: %v", *paletteName, err)
		return pal.Grayscale()
	}
	return p
}

func main() {
	flagutil.Parse()

	if *banner {
		figure.NewFigure("frmweb", "", true).Print()
	}

	l := layers()
	cfg, err := config.Load(*gameCfg, *extCfg)
	if err != nil {
		glog.Exitf("frmweb: %v", err)
	}
	c, err := art.New(l, cfg)
	if err != nil {
		glog.Exitf("frmweb: %v", err)
	}
	defer c.Close()

	r := mux.NewRouter()
	web.NewHandler(c, art.NewCache(c, cfg), l, loadPalette(l)).RegisterRoutes(r)
	(&sitemaps{catalog: c, baseURL: *baseURL}).RegisterRoutes(r)
	r.HandleFunc("/debug/requests", trace.Traces)
	r.HandleFunc("/debug/events", trace.Events)

	var h http.Handler = handlers.CompressHandler(r)
	if *accessLog {
		h = handlers.LoggingHandler(os.Stdout, h)
	}

	glog.Infof("frmweb: serving %d data layer(s) on %s", l.Len(), *listenAddress)
	glog.Fatal(http.ListenAndServe(*listenAddress, h))
}
