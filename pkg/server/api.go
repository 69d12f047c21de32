// Copyright 2026 Ewout Prangsma
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Author Ewout Prangsma
//

package server

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/binkynet/LightWorker/pkg/service/effects"
	"github.com/binkynet/LightWorker/pkg/service/lights"
)

type errorResponse struct {
	Error string `json:"error"`
}

// GET /api/v1/lights
func (s *Server) handleListLights(c echo.Context) error {
	all := s.lights.Lights()
	result := make([]lights.Status, 0, len(all))
	for _, l := range all {
		result = append(result, l.Status())
	}
	return c.JSON(http.StatusOK, result)
}

// GET /api/v1/lights/:name
func (s *Server) handleGetLight(c echo.Context) error {
	l, found := s.lights.LightByName(c.Param("name"))
	if !found {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown light"})
	}
	return c.JSON(http.StatusOK, l.Status())
}

// POST /api/v1/lights/:name/effect
func (s *Server) handlePostEffect(c echo.Context) error {
	name := c.Param("name")
	l, found := s.lights.LightByName(name)
	if !found {
		return c.JSON(http.StatusNotFound, errorResponse{Error: "unknown light"})
	}
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 4096))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	}
	req, err := lights.ParseEffectRequest(body)
	if err == nil {
		err = req.Apply(l)
	}
	switch {
	case err == nil:
		return c.JSON(http.StatusAccepted, l.Status())
	case effects.IsInvalidParameter(err):
		return c.JSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
	case effects.IsDeliveryFailed(err):
		s.log.Warn().Err(err).Str("light", name).Msg("Failed to deliver effect")
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}
