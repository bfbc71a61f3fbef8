package router

import (
	"github.com/dutyfree/reconcile/internal/interfaces/http/handler"
	"github.com/gin-gonic/gin"
)

// Handlers are the HTTP handlers of the reconcile API
type Handlers struct {
	OCR      *handler.OCRHandler
	Matching *handler.MatchingHandler
	History  *handler.HistoryHandler
	Payout   *handler.PayoutHandler
	System   *handler.SystemHandler
}

// OCRRoutes builds the /ocr route group
func OCRRoutes(h Handlers) *DomainGroup {
	ocr := NewDomainGroup("ocr", "/ocr")

	ocr.POST("/upload-zip", h.OCR.UploadZip)
	ocr.GET("/progress", h.OCR.Progress)
	ocr.POST("/excel/upload", h.OCR.UploadExcel)
	ocr.GET("/excel/count", h.OCR.ReferenceCount)

	ocr.POST("/matching/run", h.Matching.Run)
	ocr.GET("/matching/results", h.Matching.Results)
	ocr.GET("/statistics", h.Matching.Statistics)
	ocr.PUT("/receipts/:id", h.Matching.UpdateReceipt)
	ocr.POST("/receipts/generate", h.Payout.Generate)
	ocr.PUT("/passports/:id", h.Matching.UpdatePassport)
	ocr.GET("/passports/unmatched", h.Matching.ListUnmatchedPassports)
	ocr.GET("/passports/available", h.Matching.ListAvailablePassports)
	ocr.GET("/unrecognized", h.Matching.ListUnrecognized)

	ocr.POST("/complete-session", h.History.CompleteSession)
	ocr.DELETE("/session", h.History.ClearSession)
	ocr.GET("/history", h.History.ListArchives)
	ocr.GET("/history/search", h.History.SearchHistory)
	ocr.GET("/history/:id", h.History.GetArchive)

	return ocr
}

// Mount registers the health check and the versioned API on the engine
func Mount(engine *gin.Engine, h Handlers) *Router {
	engine.GET("/health", h.System.Health)

	r := NewRouter(engine, WithAPIVersion("v1"))
	r.Register(OCRRoutes(h))
	r.Register(NewDomainGroup("system", "").GET("/health", h.System.Health))
	r.Setup()
	return r
}
