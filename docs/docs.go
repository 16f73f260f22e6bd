package docs

import "github.com/swaggo/swag"

const docTemplate = `{
  "swagger": "2.0",
  "info": {
    "title": "GMalla Planner",
    "description": "Calendar and automatic assignment of incidencias to field users",
    "version": "1.0"
  },
  "basePath": "/",
  "paths": {
    "/api/incidencias": {"get": {"tags": ["incidencias"], "summary": "List tickets", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/usuarios": {"get": {"tags": ["usuarios"], "summary": "List directory users sorted by name", "produces": ["application/json"], "responses": {"200": {"description": "OK"}}}},
    "/api/calendario": {"get": {"tags": ["calendario"], "summary": "Calendar of one user between two dates", "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}},
    "/api/asignacion-automatica": {"post": {"tags": ["asignacion"], "summary": "Plan (and optionally apply) ticket assignments with the solver", "consumes": ["application/json"], "produces": ["application/json"], "responses": {"200": {"description": "OK"}, "502": {"description": "Bad Gateway"}}}}
  }
}`

func init() {
	swag.Register(swag.Name, &s{})
}

type s struct{}

func (s *s) ReadDoc() string {
	return docTemplate
}
