package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/lookbusy1344/dex-analyzer/dex"
	"github.com/lookbusy1344/dex-analyzer/loader"
)

// writeJSON encodes a response body, logging encode failures
func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		// Headers are already sent; nothing more we can do
		fmt.Printf("Error encoding response: %v\n", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// current returns the loaded analysis, or nil when nothing is loaded yet
func (s *Server) current() *loader.Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.result
}

// handleHealth reports server liveness
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleAnalyze accepts a raw DEX image in the request body, runs the full
// pipeline and publishes progress events to websocket subscribers
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	limit := int64(s.cfg.API.MaxUploadBytes)
	data, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to read body: %v", err))
		return
	}
	if int64(len(data)) > limit {
		writeError(w, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("upload exceeds %d bytes", limit))
		return
	}

	s.broadcaster.Publish(BroadcastEvent{Type: "analysis_started"})

	result, err := loader.Analyze(data, s.cfg)
	if err != nil {
		s.broadcaster.Publish(BroadcastEvent{Type: "analysis_complete", Error: err.Error()})
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	total := len(result.Methods)
	for i, m := range result.Methods {
		ev := BroadcastEvent{
			Type:   "method_analyzed",
			Method: m.Name(),
			Count:  i + 1,
			Total:  total,
		}
		if m.LiftErr != nil {
			ev.Error = m.LiftErr.Error()
		}
		s.broadcaster.Publish(ev)
	}

	s.mu.Lock()
	s.result = result
	s.mu.Unlock()

	s.broadcaster.Publish(BroadcastEvent{Type: "analysis_complete", Count: total, Total: total})
	writeJSON(w, http.StatusOK, s.summarize(result))
}

func (s *Server) summarize(res *loader.Result) SummaryResponse {
	summary := SummaryResponse{
		Version:  res.Dex.Header.Version(),
		Strings:  res.Dex.Strings.NumberOfStrings(),
		Types:    res.Dex.Types.NumberOfTypes(),
		Protos:   res.Dex.Protos.NumberOfProtos(),
		Fields:   res.Dex.Fields.NumberOfFields(),
		Methods:  res.Dex.Methods.NumberOfMethods(),
		Classes:  res.Dex.Classes.NumberOfClasses(),
		Analyzed: len(res.Methods),
	}
	for _, m := range res.Methods {
		if m.LiftErr == nil && m.Disassembly.Err == nil {
			summary.LiftedOK++
		} else {
			summary.LiftedErr++
		}
	}
	return summary
}

// handleSummary reports pool sizes for the loaded image
func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	res := s.current()
	if res == nil {
		writeError(w, http.StatusNotFound, "no DEX loaded")
		return
	}
	writeJSON(w, http.StatusOK, s.summarize(res))
}

// handleClasses lists the class definitions of the loaded image
func (s *Server) handleClasses(w http.ResponseWriter, r *http.Request) {
	res := s.current()
	if res == nil {
		writeError(w, http.StatusNotFound, "no DEX loaded")
		return
	}

	prefixes := s.cfg.Analysis.ExternalPrefixes
	var out []ClassSummary
	for _, def := range res.Dex.Classes.All() {
		cs := ClassSummary{
			Descriptor:     def.Class.Raw(),
			SourceFile:     def.SourceFile,
			DirectMethods:  len(def.DirectMethods),
			VirtualMethods: len(def.VirtualMethods),
		}
		if def.Superclass != nil {
			cs.Superclass = def.Superclass.Raw()
		}
		if ct, ok := def.Class.(*dex.ClassType); ok {
			cs.External = ct.IsExternal(prefixes)
		}
		out = append(out, cs)
	}
	writeJSON(w, http.StatusOK, out)
}

// handleMethods lists every analyzed method with its per-method status
func (s *Server) handleMethods(w http.ResponseWriter, r *http.Request) {
	res := s.current()
	if res == nil {
		writeError(w, http.StatusNotFound, "no DEX loaded")
		return
	}

	var out []MethodSummary
	for _, m := range res.Methods {
		ms := MethodSummary{
			Name:         m.Name(),
			Instructions: len(m.Disassembly.Instructions),
		}
		if m.Disassembly.Code != nil {
			ms.Registers = m.Disassembly.Code.RegistersSize
		}
		if m.Disassembly.Blocks != nil {
			ms.Blocks = len(m.Disassembly.Blocks.All())
		}
		if m.Disassembly.Err != nil {
			ms.DecodeError = m.Disassembly.Err.Error()
		}
		if m.LiftErr != nil {
			ms.LiftError = m.LiftErr.Error()
		}
		out = append(out, ms)
	}
	writeJSON(w, http.StatusOK, out)
}

// findMethod locates an analyzed method by its fully qualified name
func (s *Server) findMethod(name string) *loader.MethodAnalysis {
	res := s.current()
	if res == nil {
		return nil
	}
	for _, m := range res.Methods {
		if m.Name() == name {
			return m
		}
	}
	return nil
}

// handleDisasm renders the instruction listing of one method
func (s *Server) handleDisasm(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	m := s.findMethod(name)
	if m == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("method %q not found", name))
		return
	}

	text := ""
	for _, inst := range m.Disassembly.Instructions {
		text += inst.String() + "\n"
	}
	writeJSON(w, http.StatusOK, TextResponse{Name: name, Text: text})
}

// handleIR renders the lifted IR of one method
func (s *Server) handleIR(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	m := s.findMethod(name)
	if m == nil {
		writeError(w, http.StatusNotFound, fmt.Sprintf("method %q not found", name))
		return
	}
	if m.LiftErr != nil {
		writeError(w, http.StatusUnprocessableEntity, m.LiftErr.Error())
		return
	}
	if m.IR == nil {
		writeError(w, http.StatusNotFound, "method was not lifted")
		return
	}
	writeJSON(w, http.StatusOK, TextResponse{Name: name, Text: m.IR.String()})
}
