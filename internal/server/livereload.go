package server

import (
	"bufio"
	"bytes"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LiveReloadPath serves the server-sent events stream.
const LiveReloadPath = "/__livereload"

const heartbeat = 30 * time.Second

// LiveReloadHub fans site versions out to connected browsers.
type LiveReloadHub struct {
	mu          sync.RWMutex
	nextID      int
	clients     map[int]*lrClient
	closed      bool
	lastVersion string
}

type lrClient struct {
	id   int
	ch   chan string
	done chan struct{}
}

// NewLiveReloadHub creates an empty hub.
func NewLiveReloadHub() *LiveReloadHub {
	return &LiveReloadHub{clients: map[int]*lrClient{}}
}

// ServeHTTP implements the SSE endpoint.
func (h *LiveReloadHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "stream unsupported", http.StatusInternalServerError)
		return
	}

	client := &lrClient{ch: make(chan string, 8), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		http.Error(w, "livereload shutting down", http.StatusServiceUnavailable)
		return
	}
	client.id = h.nextID
	h.nextID++
	h.clients[client.id] = client
	current := h.lastVersion
	h.mu.Unlock()
	defer h.removeClient(client.id)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	bw := bufio.NewWriter(w)
	send := func(s string) bool {
		if _, err := bw.WriteString(s); err != nil {
			slog.Debug("livereload write", "error", err)
			return false
		}
		if err := bw.Flush(); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	if !send(": connected\n\n") {
		return
	}
	if current != "" && !send(event(current)) {
		return
	}

	hb := time.NewTicker(heartbeat)
	defer hb.Stop()
	for {
		select {
		case <-r.Context().Done():
			return
		case <-client.done:
			return
		case <-hb.C:
			if !send(": ping\n\n") {
				return
			}
		case v := <-client.ch:
			if !send(event(v)) {
				return
			}
		}
	}
}

func event(version string) string {
	return "data: {\"version\":\"" + version + "\"}\n\n"
}

func (h *LiveReloadHub) removeClient(id int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c, ok := h.clients[id]; ok {
		delete(h.clients, id)
		close(c.done)
	}
}

// Clients returns the number of connected browsers.
func (h *LiveReloadHub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends version to every client. Repeated versions are ignored and
// clients that cannot keep up are dropped.
func (h *LiveReloadHub) Broadcast(version string) {
	h.mu.Lock()
	if h.closed || version == "" || version == h.lastVersion {
		h.mu.Unlock()
		return
	}
	h.lastVersion = version
	snapshot := make([]*lrClient, 0, len(h.clients))
	for _, c := range h.clients {
		snapshot = append(snapshot, c)
	}
	h.mu.Unlock()

	dropped := 0
	for _, c := range snapshot {
		select {
		case c.ch <- version:
		default:
			dropped++
			h.removeClient(c.id)
		}
	}
	slog.Debug("livereload broadcast", "version", version, "clients", len(snapshot), "dropped", dropped)
}

// Shutdown disconnects all clients and rejects new ones.
func (h *LiveReloadHub) Shutdown() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	clients := h.clients
	h.clients = map[int]*lrClient{}
	h.mu.Unlock()
	for _, c := range clients {
		close(c.done)
	}
}

// LiveReloadScript reloads the page when the server announces a new version.
const LiveReloadScript = `(() => {
  if (window.__PAGEBUILDER_LR__) return;
  window.__PAGEBUILDER_LR__ = true;
  function connect() {
    const es = new EventSource('` + LiveReloadPath + `');
    let current = null;
    es.onmessage = (e) => {
      try {
        const p = JSON.parse(e.data);
        if (current === null) { current = p.version; return; }
        if (p.version && p.version !== current) { location.reload(); }
      } catch (_) {}
    };
    es.onerror = () => { es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();`

// InjectScript appends a script element with src as its body to the body of
// an HTML document. Documents that cannot be parsed are returned unchanged.
func InjectScript(doc []byte, src string) []byte {
	if bytes.Contains(doc, []byte("__PAGEBUILDER_LR__")) {
		return doc
	}
	root, err := html.Parse(bytes.NewReader(doc))
	if err != nil {
		return doc
	}
	body := findElement(root, atom.Body)
	if body == nil {
		return doc
	}
	script := &html.Node{Type: html.ElementNode, Data: "script", DataAtom: atom.Script}
	script.AppendChild(&html.Node{Type: html.TextNode, Data: src})
	body.AppendChild(script)

	var buf bytes.Buffer
	if err := html.Render(&buf, root); err != nil {
		return doc
	}
	return buf.Bytes()
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

// isHTML reports whether a target file is served as HTML.
func isHTML(target string) bool {
	return strings.HasSuffix(target, ".html") || strings.HasSuffix(target, ".htm")
}
