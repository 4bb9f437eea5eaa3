package mockserver

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/imathwy/tbps/internal/models"
	"github.com/rs/zerolog"
)

const APIDocsPath = "/apidocs.json"

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	ws.
		Route(ws.GET("/").
			To(handler.Root).
			Doc("Mock API information").
			Metadata(restfulspec.KeyOpenAPITags, []string{"info"}).
			Writes(InfoResponse{}).
			Returns(200, "OK", InfoResponse{}))

	ws.
		Route(ws.GET("/health").
			To(handler.Health).
			Doc("Health check with simulated degradation").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(models.HealthSnapshot{}).
			Returns(200, "OK", models.HealthSnapshot{}))

	ws.
		Route(ws.POST("/find-similar-theorems").
			To(handler.FindSimilarTheorems).
			Doc("Find theorems similar to a Lean expression").
			Metadata(restfulspec.KeyOpenAPITags, []string{"search"}).
			Reads(SearchRequest{}).
			Writes(models.SearchResponse{}).
			Returns(200, "OK", models.SearchResponse{}).
			Returns(400, "Bad Request", ErrorResponse{}).
			Returns(422, "Validation Error", ValidationResponse{}).
			Returns(500, "Internal Server Error", ErrorResponse{}))

	ws.
		Route(ws.GET("/mock-info").
			To(handler.MockInfo).
			Doc("Mock server capabilities").
			Metadata(restfulspec.KeyOpenAPITags, []string{"info"}).
			Writes(MockInfoResponse{}).
			Returns(200, "OK", MockInfoResponse{}))

	container.Add(ws)
}

// NewContainer builds the full mock API with filters and the OpenAPI document.
func NewContainer(cfg Config, logger *zerolog.Logger) *restful.Container {
	container := restful.NewContainer()
	container.Filter(RecoverPanic(logger))
	container.Filter(Logger(logger))

	RegisterRoutes(container, NewHandler(cfg, logger))

	container.Add(restfulspec.NewOpenAPIService(restfulspec.Config{
		WebServices: container.RegisteredWebServices(),
		APIPath:     APIDocsPath,
	}))

	return container
}
