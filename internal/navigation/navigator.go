// Package navigation carries the single navigation capability workflows use
// to move the user to another page.
package navigation

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
)

type Navigator interface {
	Navigate(path string)
}

// Func adapts a function to Navigator.
type Func func(path string)

func (f Func) Navigate(path string) { f(path) }

// Gin navigates by answering the current request with a 303. When the client
// asked for JSON it instead returns the target so the page can route itself.
type Gin struct {
	c *gin.Context
}

func ForContext(c *gin.Context) *Gin {
	return &Gin{c: c}
}

func (g *Gin) Navigate(path string) {
	if g.c.Writer.Written() {
		return
	}
	if g.c.NegotiateFormat(gin.MIMEJSON, gin.MIMEHTML) == gin.MIMEJSON {
		g.c.Header("Location", path)
		g.c.JSON(http.StatusOK, gin.H{"success": true, "redirect": path})
		return
	}
	g.c.Redirect(http.StatusSeeOther, path)
}

// Recorder remembers every navigation; used by tests and dry runs.
type Recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *Recorder) Navigate(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
}

func (r *Recorder) Paths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

// Last returns the most recent path or "".
func (r *Recorder) Last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.paths) == 0 {
		return ""
	}
	return r.paths[len(r.paths)-1]
}
