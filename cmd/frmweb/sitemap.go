package main

import (
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/cambragol/fission-ce/art"
	"github.com/cambragol/fission-ce/fid"
)

type SitemapURLImage struct {
	// image is the namespace 'http://www.google.com/schemas/sitemap-image/1.1'
	Loc string `xml:"image:loc"`
}

type SitemapURL struct {
	XMLName xml.Name `xml:"url"`
	Loc     string   `xml:"loc"`

	Image []SitemapURLImage `xml:"image:image,omitempty"`
}

type SitemapURLSet struct {
	XMLName    xml.Name     `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 urlset"`
	XMLNSImage string       `xml:"xmlns:image,attr"`
	URL        []SitemapURL `xml:"url,omitempty"` // up to 50k entries
}

func (e *SitemapURLSet) Write(w http.ResponseWriter, r *http.Request) {
	e.XMLNSImage = "http://www.google.com/schemas/sitemap-image/1.1"
	writeXML(w, e, "could not encode sitemap")
}

type SitemapIndexSitemap struct {
	XMLName xml.Name `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 sitemap"`
	Loc     string   `xml:"loc"`
}

type SitemapIndex struct {
	XMLName xml.Name              `xml:"http://www.sitemaps.org/schemas/sitemap/0.9 sitemapindex"`
	Sitemap []SitemapIndexSitemap `xml:"sitemap"` // up to 50k entries
}

func (e *SitemapIndex) Write(w http.ResponseWriter, r *http.Request) {
	writeXML(w, e, "could not encode sitemap index")
}

func writeXML(w http.ResponseWriter, v interface{}, failure string) {
	w.Header().Set("Content-Type", "application/xml")

	fmt.Fprintf(w, "%s", xml.Header)
	enc := xml.NewEncoder(w)
	enc.Indent("", " ")
	if err := enc.Encode(v); err != nil {
		http.Error(w, "<error>"+failure+"</error>", http.StatusInternalServerError)
	}
}

// sitemaps lists the metadata page and first frame of every art file.
type sitemaps struct {
	catalog *art.Catalog
	baseURL string
}

func (s *sitemaps) indexHandler(w http.ResponseWriter, r *http.Request) {
	idx := &SitemapIndex{}
	for i := 0; i < fid.CategoryCount; i++ {
		idx.Sitemap = append(idx.Sitemap, SitemapIndexSitemap{
			Loc: fmt.Sprintf("%s/sitemap-%s.xml", s.baseURL, fid.Category(i).Name()),
		})
	}
	idx.Write(w, r)
}

func (s *sitemaps) categoryHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["category"]
	for i := 0; i < fid.CategoryCount; i++ {
		category := fid.Category(i)
		if category.Name() != name {
			continue
		}
		set := &SitemapURLSet{}
		idx := s.catalog.Index(category)
		for id := 0; idx != nil && id < idx.Len(); id++ {
			if n, _ := idx.Name(id); n == "" {
				continue
			}
			f := uint32(fid.Pack(category, id, 0, 0, fid.NE))
			set.URL = append(set.URL, SitemapURL{
				Loc:   fmt.Sprintf("%s/meta/%d", s.baseURL, f),
				Image: []SitemapURLImage{{Loc: fmt.Sprintf("%s/frame/%d", s.baseURL, f)}},
			})
		}
		set.Write(w, r)
		return
	}
	http.Error(w, "unknown category", http.StatusNotFound)
}

func (s *sitemaps) RegisterRoutes(r *mux.Router) {
	s.baseURL = strings.TrimSuffix(s.baseURL, "/")
	r.HandleFunc("/sitemap.xml", s.indexHandler)
	r.HandleFunc("/sitemap-{category:[a-z]+}.xml", s.categoryHandler)
}
