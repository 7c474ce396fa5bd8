// Package app wires the PageMark application together: window, GUI
// manager, annotation store, renderer, and persistence handlers.
package app

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/dialog"

	"pagemark/internal/annotation"
	"pagemark/internal/config"
	"pagemark/internal/gui"
	"pagemark/internal/logger"
	"pagemark/internal/pipeline"
	"pagemark/internal/render"
	"pagemark/internal/suggest"
)

const (
	AppName = "PageMark"
	AppID   = "org.pagemark.annotator"
)

type Application struct {
	fyneApp    fyne.App
	window     fyne.Window
	cfg        *config.Config
	logger     logger.Logger
	store      *annotation.Store
	guiManager *gui.Manager
	handlers   *Handlers
	lifecycle  *Lifecycle
}

func NewApplication(cfg *config.Config, log logger.Logger) (*Application, error) {
	fyneApp := app.NewWithID(AppID)
	window := fyneApp.NewWindow(AppName)
	window.Resize(fyne.NewSize(float32(cfg.Window.Width), float32(cfg.Window.Height)))
	window.CenterOnScreen()
	window.SetMaster()

	palette, err := buildPalette(cfg)
	if err != nil {
		return nil, err
	}

	store := annotation.NewStore(log, palette)
	guiManager := gui.NewManager(window, store, log, cfg.DPI)

	handlers := NewHandlers(
		store,
		guiManager,
		render.NewRenderer(log),
		pipeline.NewSaver(log),
		pipeline.NewLoader(log),
		pipeline.NewExporter(log),
		suggest.NewSuggester(cfg.Suggest, log),
		log,
		cfg.DPI,
	)

	application := &Application{
		fyneApp:    fyneApp,
		window:     window,
		cfg:        cfg,
		logger:     log,
		store:      store,
		guiManager: guiManager,
		handlers:   handlers,
		lifecycle:  NewLifecycle(log),
	}
	application.setupHandlers()
	application.setupMenus()

	log.Info("Application", "initialization complete", map[string]interface{}{
		"dpi":           cfg.DPI,
		"window_width":  cfg.Window.Width,
		"window_height": cfg.Window.Height,
	})
	return application, nil
}

func buildPalette(cfg *config.Config) (*annotation.Palette, error) {
	if len(cfg.Colors) == 0 {
		return annotation.NewPalette(nil), nil
	}
	cycle, err := annotation.ParseCycle(cfg.Colors)
	if err != nil {
		return nil, fmt.Errorf("config colors: %w", err)
	}
	return annotation.NewPalette(cycle), nil
}

func (a *Application) setupHandlers() {
	a.guiManager.SetDPIChangeHandler(a.handlers.HandleDPIChange)
	a.guiManager.SetEditBoxHandler(a.handlers.HandleEditBox)
	a.guiManager.SetDeleteBoxHandler(a.handlers.HandleDeleteBox)
	a.guiManager.SetAddPropertyHandler(a.handlers.HandleAddProperty)
	a.guiManager.SetPropertyValueAddHandler(a.handlers.HandleAddPropertyValue)
	a.guiManager.SetChangedHandler(a.updateTitle)
	a.handlers.SetTitleUpdater(a.updateTitle)
}

func (a *Application) setupMenus() {
	fileMenu := fyne.NewMenu("File",
		fyne.NewMenuItem("Open PDF...", a.handlers.HandleOpenPDF),
		fyne.NewMenuItem("Load Annotations...", a.handlers.HandleLoadAnnotations),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Save", a.handlers.HandleSave),
		fyne.NewMenuItem("Save As...", a.handlers.HandleSaveAs),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Quit", a.requestClose),
	)
	exportMenu := fyne.NewMenu("Export",
		fyne.NewMenuItem("Export Image...", a.handlers.HandleExportImage),
		fyne.NewMenuItem("Export All Images...", a.handlers.HandleExportAllImages),
		fyne.NewMenuItem("Export Bboxes...", a.handlers.HandleExportBoxes),
	)
	toolsMenu := fyne.NewMenu("Tools",
		fyne.NewMenuItem("Suggest Regions", a.handlers.HandleSuggestRegions),
	)
	a.window.SetMainMenu(fyne.NewMainMenu(fileMenu, exportMenu, toolsMenu))
}

// updateTitle keeps the unsaved-changes marker in the window title.
func (a *Application) updateTitle() {
	title := AppName
	if a.store.Dirty() {
		title += " *"
	}
	a.window.SetTitle(title)
}

// requestClose prompts when there are unsaved changes, then quits.
func (a *Application) requestClose() {
	if !a.store.Dirty() {
		a.shutdown()
		return
	}
	dialog.ShowConfirm("Unsaved Changes",
		"You have unsaved changes. Exit without saving?",
		func(confirmed bool) {
			if confirmed {
				a.shutdown()
			}
		}, a.window)
}

func (a *Application) shutdown() {
	a.lifecycle.Shutdown()
	a.window.Close()
}

// Run shows the window and enters the event loop. A non-empty pdfPath
// is opened once the window is up.
func (a *Application) Run(pdfPath string) error {
	a.window.SetCloseIntercept(a.requestClose)
	a.window.SetContent(a.guiManager.GetMainContainer())
	a.window.Show()

	if pdfPath != "" {
		a.handlers.OpenPDFPath(pdfPath)
	}

	a.fyneApp.Run()
	return nil
}
