package ui

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pdfink/internal/annotation"
)

const (
	zoomStep = 1.25
	minScale = 0.25
	maxScale = 4.0
)

var palette = map[string]string{
	"Black":  "#000000",
	"Red":    "#d32f2f",
	"Blue":   "#1976d2",
	"Green":  "#388e3c",
	"Yellow": "#fbc02d",
}

func colorName(hex string) string {
	for name, h := range palette {
		if h == hex {
			return name
		}
	}
	return "Black"
}

// NewToolbar builds the tool strip: drawing tools, color choice, zoom,
// and save. onStatus receives short status messages.
func NewToolbar(dv *DocView, onStatus func(string)) fyne.CanvasObject {
	status := func(msg string) {
		if onStatus != nil {
			onStatus(msg)
		}
	}

	toolButtons := map[annotation.Tool]*widget.Button{}
	setTool := func(tool annotation.Tool) {
		dv.coord.SetTool(tool)
		for t, b := range toolButtons {
			if t == tool {
				b.Importance = widget.HighImportance
			} else {
				b.Importance = widget.MediumImportance
			}
			b.Refresh()
		}
		status(tool.String())
	}

	for _, tool := range []annotation.Tool{
		annotation.ToolPen,
		annotation.ToolHighlighter,
		annotation.ToolEraser,
		annotation.ToolHand,
	} {
		tool := tool
		toolButtons[tool] = widget.NewButton(tool.String(), func() { setTool(tool) })
	}
	toolButtons[dv.coord.Tool()].Importance = widget.HighImportance

	colorSelect := widget.NewSelect([]string{"Black", "Red", "Blue", "Green", "Yellow"}, func(name string) {
		if hex, ok := palette[name]; ok {
			dv.coord.SetColor(hex)
		}
	})
	colorSelect.SetSelected(colorName(dv.coord.Color()))

	zoom := func(factor float64) {
		scale := dv.coord.Scale() * factor
		if scale < minScale {
			scale = minScale
		}
		if scale > maxScale {
			scale = maxScale
		}
		if err := dv.coord.SetScale(scale); err != nil {
			status("zoom failed: " + err.Error())
			return
		}
		dv.RefreshAll()
	}
	zoomIn := widget.NewButtonWithIcon("", theme.ZoomInIcon(), func() { zoom(zoomStep) })
	zoomOut := widget.NewButtonWithIcon("", theme.ZoomOutIcon(), func() { zoom(1 / zoomStep) })

	save := widget.NewButtonWithIcon("Save", theme.DocumentSaveIcon(), func() {
		if err := dv.coord.SaveAll(); err != nil {
			status("save failed: " + err.Error())
			return
		}
		status("annotations saved")
	})

	return container.NewHBox(
		toolButtons[annotation.ToolPen],
		toolButtons[annotation.ToolHighlighter],
		toolButtons[annotation.ToolEraser],
		toolButtons[annotation.ToolHand],
		widget.NewSeparator(),
		colorSelect,
		widget.NewSeparator(),
		zoomOut,
		zoomIn,
		widget.NewSeparator(),
		save,
	)
}
