package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mcphost/host/pkg/models"
)

// ServerStatus is the lifecycle state of one MCP server subprocess, used
// for the Server Health Record surfaced over /healthz and SERVER_STATUS
// intents.
type ServerStatus string

const (
	StatusStarting ServerStatus = "starting"
	StatusReady    ServerStatus = "ready"
	StatusDown     ServerStatus = "down"
)

// ServerHealth is the point-in-time health record of one server.
type ServerHealth struct {
	ServerID  string       `json:"server_id"`
	Status    ServerStatus `json:"status"`
	LastError string       `json:"last_error,omitempty"`
	ToolCount int          `json:"tool_count"`
}

const defaultCallTimeout = 30 * time.Second

// Registry owns every configured server's subprocess, aggregates their
// tools into one name-indexed lookup, and dispatches tools/call requests.
// The first server to register a given tool name wins any collision;
// later registrations of the same name are logged and skipped, matching
// the advisory (not authoritative) role the server id plays in routing.
type Registry struct {
	logger      *slog.Logger
	toolTimeout time.Duration

	mu        sync.RWMutex
	servers   map[string]*transport
	health    map[string]*ServerHealth
	tools     map[string]*models.ToolDescriptor
	toolOwner map[string]string // tool name -> server id that registered it

	idSeq atomic.Int64

	watcher      *fsnotify.Watcher
	inventoryPath string
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewRegistry constructs an empty Registry. Call LoadInventory to spawn
// the configured servers.
func NewRegistry(logger *slog.Logger, toolTimeout time.Duration) *Registry {
	if toolTimeout <= 0 {
		toolTimeout = defaultCallTimeout
	}
	return &Registry{
		logger:      logger,
		toolTimeout: toolTimeout,
		servers:     make(map[string]*transport),
		health:      make(map[string]*ServerHealth),
		tools:       make(map[string]*models.ToolDescriptor),
		toolOwner:   make(map[string]string),
		stopChan:    make(chan struct{}),
	}
}

// LoadInventory reads path, spawns every entry's subprocess, performs the
// initialize handshake, and populates the tool index. A server that
// fails to start or initialize is recorded as down rather than aborting
// the whole load; one bad server should not block the others.
func (r *Registry) LoadInventory(ctx context.Context, path string) error {
	entries, err := loadInventory(path)
	if err != nil {
		return err
	}
	r.inventoryPath = path

	for _, entry := range entries {
		r.startServer(ctx, entry)
	}
	return nil
}

func (r *Registry) startServer(ctx context.Context, entry *ServerEntry) {
	r.mu.Lock()
	r.health[entry.ID] = &ServerHealth{ServerID: entry.ID, Status: StatusStarting}
	r.mu.Unlock()

	t := newTransport(entry, r.logger)
	if err := t.connect(ctx); err != nil {
		r.markDown(entry.ID, err)
		return
	}

	if err := r.initialize(ctx, t); err != nil {
		t.close()
		r.markDown(entry.ID, err)
		return
	}

	toolList, err := r.listTools(ctx, t)
	if err != nil {
		t.close()
		r.markDown(entry.ID, err)
		return
	}

	r.mu.Lock()
	r.servers[entry.ID] = t
	for _, mcpTool := range toolList {
		desc, err := flattenTool(entry.ID, mcpTool)
		if err != nil {
			r.logger.Warn("skipping tool with invalid schema", "server", entry.ID, "tool", mcpTool.Name, "error", err)
			continue
		}
		if owner, exists := r.toolOwner[desc.Name]; exists {
			r.logger.Warn("duplicate tool name, keeping first registration", "tool", desc.Name, "existing_server", owner, "ignored_server", entry.ID)
			continue
		}
		r.tools[desc.Name] = desc
		r.toolOwner[desc.Name] = entry.ID
	}
	r.health[entry.ID] = &ServerHealth{ServerID: entry.ID, Status: StatusReady, ToolCount: len(toolList)}
	r.mu.Unlock()
}

func (r *Registry) markDown(serverID string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health[serverID] = &ServerHealth{ServerID: serverID, Status: StatusDown, LastError: err.Error()}
	r.logger.Error("mcp server unavailable", "server", serverID, "error", err)
}

func (r *Registry) nextRequestID(sessionID string) string {
	return fmt.Sprintf("host-%s-%d", sessionID, r.idSeq.Add(1))
}

func (r *Registry) initialize(ctx context.Context, t *transport) error {
	params, err := json.Marshal(struct {
		ProtocolVersion string       `json:"protocolVersion"`
		Capabilities    Capabilities `json:"capabilities"`
		ClientInfo      ClientInfo   `json:"clientInfo"`
	}{
		ProtocolVersion: "2024-11-05",
		Capabilities:    Capabilities{Tools: &ToolsCapability{}},
		ClientInfo:      ClientInfo{Name: "mcphost", Version: "0.1.0"},
	})
	if err != nil {
		return err
	}

	if _, err := t.call(ctx, r.nextRequestID("init"), "initialize", params, r.toolTimeout); err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	return t.notify("notifications/initialized", nil)
}

func (r *Registry) listTools(ctx context.Context, t *transport) ([]*MCPTool, error) {
	result, err := t.call(ctx, r.nextRequestID("list"), "tools/list", nil, r.toolTimeout)
	if err != nil {
		return nil, fmt.Errorf("tools/list: %w", err)
	}
	var parsed ListToolsResult
	if err := json.Unmarshal(result, &parsed); err != nil {
		return nil, fmt.Errorf("tools/list: parsing result: %w", err)
	}
	return parsed.Tools, nil
}

// flattenTool converts one server's raw tool description into the
// ordered field list the Schema Coercer needs, compiling the schema once
// to catch malformed descriptors at registration time.
func flattenTool(serverID string, tool *MCPTool) (*models.ToolDescriptor, error) {
	desc := &models.ToolDescriptor{
		Name:        tool.Name,
		ServerID:    serverID,
		Description: tool.Description,
		RawSchema:   tool.InputSchema,
	}
	if len(tool.InputSchema) == 0 {
		return desc, nil
	}

	var schemaDoc struct {
		Properties map[string]struct {
			Type    string `json:"type"`
			Default any    `json:"default"`
		} `json:"properties"`
		Required []string        `json:"required"`
		Order    json.RawMessage `json:"-"`
	}
	if err := json.Unmarshal(tool.InputSchema, &schemaDoc); err != nil {
		return nil, err
	}

	required := make(map[string]bool, len(schemaDoc.Required))
	for _, name := range schemaDoc.Required {
		required[name] = true
	}

	order, err := propertyOrder(tool.InputSchema)
	if err != nil {
		return nil, err
	}
	for _, name := range order {
		prop := schemaDoc.Properties[name]
		desc.Fields = append(desc.Fields, models.ToolField{
			Name:     name,
			Type:     fieldTypeOf(prop.Type),
			Default:  prop.Default,
			Required: required[name],
		})
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(tool.Name, strings.NewReader(string(tool.InputSchema))); err != nil {
		return nil, err
	}
	if _, err := compiler.Compile(tool.Name); err != nil {
		return nil, err
	}

	return desc, nil
}

// propertyOrder extracts the "properties" object's key order directly
// from the raw JSON tokens, since encoding/json discards map insertion
// order and positional coercion depends on the schema's declared order.
func propertyOrder(rawSchema json.RawMessage) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(string(rawSchema)))
	var order []string
	inProperties := false
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch v := tok.(type) {
		case json.Delim:
			if v == '{' || v == '[' {
				depth++
			} else {
				depth--
				if inProperties && depth == 1 {
					return order, nil
				}
			}
		case string:
			if inProperties && depth == 2 {
				order = append(order, v)
				skipValue(dec)
			} else if v == "properties" {
				inProperties = true
			}
		}
	}
	return order, nil
}

func skipValue(dec *json.Decoder) {
	depth := 0
	for {
		tok, err := dec.Token()
		if err != nil {
			return
		}
		if d, ok := tok.(json.Delim); ok {
			if d == '{' || d == '[' {
				depth++
				continue
			}
			depth--
			if depth == 0 {
				return
			}
			continue
		}
		if depth == 0 {
			return
		}
	}
}

func fieldTypeOf(jsonType string) models.FieldType {
	switch jsonType {
	case "integer":
		return models.FieldInteger
	case "number":
		return models.FieldNumber
	case "boolean":
		return models.FieldBoolean
	default:
		return models.FieldString
	}
}

// Tools returns every registered tool, sorted by name.
func (r *Registry) Tools() []*models.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.ToolDescriptor, 0, len(r.tools))
	for _, desc := range r.tools {
		out = append(out, desc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Lookup returns the descriptor for name, advisory server id ignored:
// routing is purely by tool name across the whole registry.
func (r *Registry) Lookup(name string) (*models.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	desc, ok := r.tools[name]
	return desc, ok
}

// Health returns the current health record of every configured server.
func (r *Registry) Health() []*ServerHealth {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*ServerHealth, 0, len(r.health))
	for _, h := range r.health {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ServerID < out[j].ServerID })
	return out
}

// CallTool dispatches name(args) to the server that registered it.
func (r *Registry) CallTool(ctx context.Context, sessionID, name string, args map[string]any) (*models.ToolCallRecord, error) {
	desc, ok := r.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("mcp: tool %q is not registered", name)
	}

	r.mu.RLock()
	t, ok := r.servers[desc.ServerID]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mcp: server %q for tool %q is not connected", desc.ServerID, name)
	}

	argsJSON, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}

	params, err := json.Marshal(CallToolParams{Server: desc.ServerID, Name: name, Arguments: argsJSON})
	if err != nil {
		return nil, fmt.Errorf("marshal call params: %w", err)
	}

	start := time.Now()
	result, err := t.call(ctx, r.nextRequestID(sessionID), "tools/call", params, r.toolTimeout)
	record := &models.ToolCallRecord{
		ServerID:           desc.ServerID,
		ToolName:           name,
		Arguments:          args,
		DurationMs:         time.Since(start).Milliseconds(),
		JSONRPCRequestText: string(params),
	}
	if err != nil {
		record.Error = err.Error()
		return record, err
	}

	record.JSONRPCResponseText = string(result)
	var toolResult ToolCallResult
	if err := json.Unmarshal(result, &toolResult); err == nil && toolResult.IsError {
		var sb strings.Builder
		for _, c := range toolResult.Content {
			sb.WriteString(c.Text)
		}
		record.Error = sb.String()
		return record, fmt.Errorf("mcp: tool %q reported an error: %s", name, record.Error)
	}
	record.Result = result
	return record, nil
}

// WatchInventory watches the inventory file loaded by LoadInventory and
// reloads it on change, starting any newly added servers. Servers already
// running are left untouched: a full restart-on-change policy would drop
// in-flight tool calls on every unrelated edit, so reload only grows the
// registry.
func (r *Registry) WatchInventory(ctx context.Context) error {
	if r.inventoryPath == "" {
		return fmt.Errorf("mcp: WatchInventory called before LoadInventory")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("mcp: creating inventory watcher: %w", err)
	}
	if err := watcher.Add(r.inventoryPath); err != nil {
		watcher.Close()
		return fmt.Errorf("mcp: watching inventory %q: %w", r.inventoryPath, err)
	}
	r.watcher = watcher

	r.wg.Add(1)
	go r.watchLoop(ctx)
	return nil
}

func (r *Registry) watchLoop(ctx context.Context) {
	defer r.wg.Done()
	for {
		select {
		case <-r.stopChan:
			return
		case err, ok := <-r.watcher.Errors:
			if !ok {
				return
			}
			r.logger.Warn("inventory watcher error", "error", err)
		case event, ok := <-r.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			r.reloadInventory(ctx)
		}
	}
}

func (r *Registry) reloadInventory(ctx context.Context) {
	entries, err := loadInventory(r.inventoryPath)
	if err != nil {
		r.logger.Error("inventory reload failed", "error", err)
		return
	}

	r.mu.RLock()
	var toStart []*ServerEntry
	for _, entry := range entries {
		if _, running := r.servers[entry.ID]; !running {
			toStart = append(toStart, entry)
		}
	}
	r.mu.RUnlock()

	for _, entry := range toStart {
		r.logger.Info("starting newly configured server", "server", entry.ID)
		r.startServer(ctx, entry)
	}
}

// Close stops the inventory watcher (if started) and every subprocess.
func (r *Registry) Close() error {
	select {
	case <-r.stopChan:
	default:
		close(r.stopChan)
	}
	if r.watcher != nil {
		r.watcher.Close()
	}
	r.wg.Wait()

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.servers {
		t.close()
	}
	return nil
}
