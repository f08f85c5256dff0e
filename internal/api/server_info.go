package api

import "net/http"

type ServerInfoHandler struct {
	serverName string
	baseURL    string
}

func NewServerInfoHandler(name, baseURL string) *ServerInfoHandler {
	return &ServerInfoHandler{serverName: name, baseURL: baseURL}
}

type ServerInfoResponse struct {
	Name    string `json:"name"`
	BaseURL string `json:"baseUrl"`
}

// GET /api/v1/server/info
func (h *ServerInfoHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServerInfoResponse{
		Name:    h.serverName,
		BaseURL: h.baseURL,
	})
}
