package middleware

import (
	"net/http"

	"github.com/go-chi/render"
)

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, r *http.Request, status int, name, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorBody{Error: name, Message: message})
}
