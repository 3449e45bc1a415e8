package ui

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"pdfink/internal/annotation"
	"pdfink/internal/config"
	"pdfink/internal/pdfdoc"
	"pdfink/internal/sidecar"
	"pdfink/internal/storage"
	"pdfink/internal/view"
	"pdfink/ui/prefs"
)

const appTitle = "PDF Ink"

// Run opens the document, builds the window, and blocks until the window
// closes. Annotations are saved on close.
func Run(cfg *config.Config, log *slog.Logger, docPath string) error {
	doc, err := pdfdoc.Open(docPath)
	if err != nil {
		return err
	}
	defer doc.Close()

	renderer := pdfdoc.NewRenderer(pdfdoc.Config{
		Workers:     cfg.RasterWorkers,
		Synchronous: cfg.DisableWorkers,
	}, pdfdoc.WithRendererLogger(log))
	defer renderer.Close()

	store := sidecar.NewStore(storage.NewDirFS(filepath.Dir(docPath)), log)

	session := prefs.Load()

	// the docview is the notifier, so wire it up after construction
	var dv *DocView
	coord := view.New(doc, renderer, store,
		view.WithLogger(log),
		view.WithScale(session.Float(prefs.KeyScale, cfg.Scale)),
		view.WithTouchDrawing(cfg.TouchDrawing),
		view.WithNotifier(view.NotifierFunc(func(page int) {
			if dv != nil {
				dv.PageUpdated(page)
			}
		})))
	if tool, err := annotation.ParseTool(session.String(prefs.KeyTool, "pen")); err == nil {
		coord.SetTool(tool)
	}
	coord.SetColor(session.String(prefs.KeyColor, "#000000"))

	dv = NewDocView(coord, cfg.PreloadMargin)

	fyneApp := app.NewWithID("io.pdfink.viewer")
	win := fyneApp.NewWindow(fmt.Sprintf("%s - %s", appTitle, filepath.Base(docPath)))

	statusBar := widget.NewLabel(fmt.Sprintf("%d pages", doc.NumPages()))
	toolbar := NewToolbar(dv, statusBar.SetText)

	win.SetContent(container.NewBorder(toolbar, statusBar, nil, nil, dv.Content()))
	win.Resize(fyne.NewSize(1000, 800))

	win.SetCloseIntercept(func() {
		session.SetString(prefs.KeyTool, coord.Tool().String())
		session.SetString(prefs.KeyColor, coord.Color())
		session.SetFloat(prefs.KeyScale, coord.Scale())
		if err := session.Save(); err != nil {
			log.Warn("saving preferences failed", "error", err)
		}
		if err := coord.Close(); err != nil {
			log.Error("saving annotations on close failed", "error", err)
		}
		win.Close()
	})

	// mount the first pages before the window shows
	dv.MountVisible()

	win.ShowAndRun()
	return nil
}
