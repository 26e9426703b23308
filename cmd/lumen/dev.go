package main

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/recera/lumen/pkg/dom"
	"github.com/recera/lumen/pkg/render"
	"github.com/recera/lumen/pkg/runtime"
	tmpl "github.com/recera/lumen/pkg/template"
)

type devServer struct {
	templatePath string
	dataPath     string
	cfg          tmpl.Config

	// mu serializes compilation, data reloads and reads of the document
	mu    sync.Mutex
	scope *liveScope
	doc   *dom.Document
	inst  *render.Instance

	wsClients map[*websocket.Conn]bool
	wsMutex   sync.RWMutex
	writeMu   sync.Mutex
	upgrader  websocket.Upgrader
}

func newDevCommand() *cobra.Command {
	var (
		dataPath string
		port     int
		host     string
		preserve bool
	)

	cmd := &cobra.Command{
		Use:   "dev <template>",
		Short: "Serve a live preview of a template",
		Long: `Starts a development server rendering the template against the data
context. Editing the data file runs Update and pushes the new HTML and the
number of DOM mutations to the browser; editing the template recompiles it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			proj, err := loadProject()
			if err != nil {
				return err
			}

			// CLI takes precedence
			if cmd.Flags().Changed("port") {
				proj.cfg.Dev.Port = port
			}
			if cmd.Flags().Changed("host") {
				proj.cfg.Dev.Host = host
			}
			var flag *bool
			if cmd.Flags().Changed("preserve-whitespace") {
				flag = &preserve
			}

			s, err := newDevServer(args[0], dataPath, proj.templateConfig(flag))
			if err != nil {
				return err
			}
			return s.run(proj.cfg.Dev.Host, proj.cfg.Dev.Port)
		},
	}

	cmd.Flags().StringVar(&dataPath, "data", "", "YAML or JSON data context")
	cmd.Flags().IntVarP(&port, "port", "p", 7070, "Port to run the dev server on")
	cmd.Flags().StringVarP(&host, "host", "H", "localhost", "Host to bind the dev server to")
	cmd.Flags().BoolVar(&preserve, "preserve-whitespace", false, "Keep whitespace-only text between elements")

	return cmd
}

func newDevServer(templatePath, dataPath string, cfg tmpl.Config) (*devServer, error) {
	data, err := loadData(dataPath)
	if err != nil {
		return nil, err
	}
	s := &devServer{
		templatePath: templatePath,
		dataPath:     dataPath,
		cfg:          cfg,
		scope:        newLiveScope(data),
		wsClients:    make(map[*websocket.Conn]bool),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow all origins in dev mode
				return true
			},
		},
	}
	if err := s.recompile(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *devServer) run(host string, port int) error {
	w, err := newWatcher(s.isRelevantFile)
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer w.Close()

	dirs := map[string]bool{filepath.Dir(s.templatePath): true}
	if s.dataPath != "" {
		dirs[filepath.Dir(s.dataPath)] = true
	}
	for dir := range dirs {
		if err := w.add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go w.run(ctx, s.handleFileChanges)

	addr := fmt.Sprintf("%s:%d", host, port)
	srv := &http.Server{
		Addr:    addr,
		Handler: s.routes(),
	}

	go func() {
		<-ctx.Done()
		log.Println("\n🛑 Shutting down dev server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("✨ Dev server running at http://%s\n", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *devServer) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.servePage)
	mux.HandleFunc("/lumen/html", s.serveFragment)
	mux.HandleFunc("/lumen/ws", s.handleWebSocket)
	return mux
}

func (s *devServer) isRelevantFile(path string) bool {
	return samePath(path, s.templatePath) || (s.dataPath != "" && samePath(path, s.dataPath))
}

func samePath(a, b string) bool {
	aa, err1 := filepath.Abs(a)
	bb, err2 := filepath.Abs(b)
	if err1 != nil || err2 != nil {
		return filepath.Clean(a) == filepath.Clean(b)
	}
	return aa == bb
}

// recompile compiles the template and mounts a fresh instance into a new
// document. On failure the previous instance stays live.
func (s *devServer) recompile() error {
	c, err := compileFile(s.templatePath, s.cfg)
	if err != nil {
		return err
	}

	doc := dom.New()
	inst := c.program.New(s.scope, doc)
	if err := runtime.Mount(inst, doc.Root()); err != nil {
		return fmt.Errorf("create failed: %w", err)
	}

	s.mu.Lock()
	if s.inst != nil {
		s.inst.Destroy()
	}
	s.doc, s.inst = doc, inst
	s.mu.Unlock()

	log.Printf("🎨 Compiled %s (%s)", s.templatePath, c.program.Stats())
	return nil
}

// reloadData swaps in the data file's current content and runs Update,
// returning the resulting HTML and the mutations it took
func (s *devServer) reloadData() (string, *dom.Journal, error) {
	data, err := loadData(s.dataPath)
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.scope.Set(data)
	s.doc.Journal().Reset()
	if err := s.inst.Update(); err != nil {
		return "", nil, fmt.Errorf("update failed: %w", err)
	}
	return s.doc.HTML(), s.doc.Journal(), nil
}

func (s *devServer) html() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.HTML()
}

func (s *devServer) handleFileChanges(paths []string) {
	templateChanged := false
	for _, p := range paths {
		if samePath(p, s.templatePath) {
			templateChanged = true
		}
	}

	if templateChanged {
		if err := s.recompile(); err != nil {
			log.Printf("⚠️  %v", err)
			s.notifyClients("error", map[string]interface{}{"message": err.Error()})
			return
		}
		s.notifyClients("reload", map[string]interface{}{"html": s.html()})
		return
	}

	html, journal, err := s.reloadData()
	if err != nil {
		log.Printf("⚠️  %v", err)
		s.notifyClients("error", map[string]interface{}{"message": err.Error()})
		return
	}
	log.Printf("🔄 Updated with %d mutations", journal.Mutations())
	s.notifyClients("update", map[string]interface{}{
		"html":      html,
		"mutations": journal.Mutations(),
		"counts":    journal.Counts(),
	})
}

func (s *devServer) servePage(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	err := pageTemplate.Execute(w, map[string]interface{}{
		"Title": filepath.Base(s.templatePath),
		"Body":  template.HTML(s.html()),
	})
	if err != nil {
		log.Printf("Failed to render page: %v", err)
	}
}

func (s *devServer) serveFragment(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(s.html()))
}

func (s *devServer) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	s.wsMutex.Lock()
	s.wsClients[conn] = true
	s.wsMutex.Unlock()

	defer func() {
		s.wsMutex.Lock()
		delete(s.wsClients, conn)
		s.wsMutex.Unlock()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		switch msg["type"] {
		case "HELLO":
			s.writeMu.Lock()
			conn.WriteJSON(map[string]interface{}{"type": "ACK"})
			s.writeMu.Unlock()
		default:
			log.Printf("Unknown WebSocket message type: %v", msg["type"])
		}
	}
}

func (s *devServer) notifyClients(msgType string, data map[string]interface{}) {
	s.wsMutex.RLock()
	defer s.wsMutex.RUnlock()

	message := map[string]interface{}{
		"type": strings.ToUpper(msgType),
	}
	for k, v := range data {
		message[k] = v
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	for client := range s.wsClients {
		if err := client.WriteJSON(message); err != nil {
			log.Printf("Failed to send message to client: %v", err)
		}
	}
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{ .Title }} · lumen dev</title>
<style>
#lumen-status { position: fixed; bottom: 0; right: 0; padding: 4px 8px; font: 12px monospace; background: #f59e0b; color: #111; }
#lumen-status.error { background: #ef4444; color: #fff; }
</style>
</head>
<body>
<div id="lumen-root">{{ .Body }}</div>
<div id="lumen-status">connecting</div>
<script>
(function () {
  var root = document.getElementById("lumen-root");
  var status = document.getElementById("lumen-status");
  var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/lumen/ws");
  ws.onopen = function () { ws.send(JSON.stringify({ type: "HELLO" })); status.textContent = "live"; };
  ws.onclose = function () { status.textContent = "disconnected"; };
  ws.onmessage = function (ev) {
    var msg = JSON.parse(ev.data);
    status.className = "";
    switch (msg.type) {
    case "UPDATE":
      root.innerHTML = msg.html;
      status.textContent = msg.mutations + " mutations";
      break;
    case "RELOAD":
      root.innerHTML = msg.html;
      status.textContent = "recompiled";
      break;
    case "ERROR":
      status.className = "error";
      status.textContent = msg.message;
      break;
    }
  };
})();
</script>
</body>
</html>
`))
