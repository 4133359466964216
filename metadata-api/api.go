package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/animus-labs/animus-indexer/internal/catalog"
	"github.com/animus-labs/animus-indexer/internal/domain"
)

type metadataAPI struct {
	logger    *slog.Logger
	inventory catalog.Inventory
}

func newMetadataAPI(logger *slog.Logger, inventory catalog.Inventory) *metadataAPI {
	return &metadataAPI{logger: logger, inventory: inventory}
}

func (api *metadataAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /datasources", api.handleListDataSources)
	mux.HandleFunc("GET /datasources/{name}", api.handleGetDataSource)
	mux.HandleFunc("GET /datasources/{name}/segments", api.handleListSegments)
	mux.HandleFunc("GET /datasources/{name}/segments/{segment_id}", api.handleGetSegment)
}

// handleListDataSources answers three shapes. includeDisabled takes
// precedence over full when both flags are present.
func (api *metadataAPI) handleListDataSources(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if query.Has("includeDisabled") {
		names, err := api.inventory.AllDataSourceNames(r.Context())
		if err != nil {
			api.internalError(w, r, "list data source names", err)
			return
		}
		api.writeJSON(w, http.StatusOK, names)
		return
	}

	dataSources, err := api.inventory.DataSources(r.Context())
	if err != nil {
		api.internalError(w, r, "list data sources", err)
		return
	}
	if query.Has("full") {
		api.writeJSON(w, http.StatusOK, dataSources)
		return
	}
	api.writeJSON(w, http.StatusOK, sortedNames(dataSources))
}

func (api *metadataAPI) handleGetDataSource(w http.ResponseWriter, r *http.Request) {
	dataSource, ok := api.lookupDataSource(w, r)
	if !ok {
		return
	}
	api.writeJSON(w, http.StatusOK, dataSource)
}

func (api *metadataAPI) handleListSegments(w http.ResponseWriter, r *http.Request) {
	dataSource, ok := api.lookupDataSource(w, r)
	if !ok {
		return
	}
	if r.URL.Query().Has("full") {
		segments := dataSource.Segments
		if segments == nil {
			segments = []domain.Segment{}
		}
		api.writeJSON(w, http.StatusOK, segments)
		return
	}
	ids := make([]string, 0, len(dataSource.Segments))
	for _, seg := range dataSource.Segments {
		ids = append(ids, seg.Identifier())
	}
	api.writeJSON(w, http.StatusOK, ids)
}

func (api *metadataAPI) handleGetSegment(w http.ResponseWriter, r *http.Request) {
	dataSource, ok := api.lookupDataSource(w, r)
	if !ok {
		return
	}
	segmentID := strings.TrimSpace(r.PathValue("segment_id"))
	for _, seg := range dataSource.Segments {
		if strings.EqualFold(seg.Identifier(), segmentID) {
			api.writeJSON(w, http.StatusOK, seg)
			return
		}
	}
	api.writeError(w, r, http.StatusNotFound, "not_found")
}

func (api *metadataAPI) lookupDataSource(w http.ResponseWriter, r *http.Request) (domain.DataSource, bool) {
	name := strings.TrimSpace(r.PathValue("name"))
	if name == "" {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return domain.DataSource{}, false
	}
	dataSource, err := api.inventory.DataSource(r.Context(), name)
	if errors.Is(err, catalog.ErrNotFound) {
		api.writeError(w, r, http.StatusNotFound, "not_found")
		return domain.DataSource{}, false
	}
	if err != nil {
		api.internalError(w, r, "get data source", err)
		return domain.DataSource{}, false
	}
	return dataSource, true
}

func sortedNames(dataSources []domain.DataSource) []string {
	seen := make(map[string]struct{}, len(dataSources))
	names := make([]string, 0, len(dataSources))
	for _, ds := range dataSources {
		if _, ok := seen[ds.Name]; ok {
			continue
		}
		seen[ds.Name] = struct{}{}
		names = append(names, ds.Name)
	}
	sort.Strings(names)
	return names
}

func (api *metadataAPI) internalError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	api.logger.Error(msg, "request_id", r.Header.Get("X-Request-Id"), "error", err)
	api.writeError(w, r, http.StatusInternalServerError, "internal_error")
}

func (api *metadataAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *metadataAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}
