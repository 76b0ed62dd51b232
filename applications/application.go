package applications

import "context"

// DemoAppID is served from a synthetic record and never stored.
const DemoAppID = "demo-app"

type Application struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	IsThirdParty bool   `json:"isThirdParty"`
}

// DemoApp is the built-in first party application used by the sample app.
func DemoApp() *Application {
	return &Application{ID: DemoAppID, Name: "Live Preview", IsThirdParty: false}
}

type Finder interface {
	FindByID(ctx context.Context, id string) (*Application, error)
}

type Repo interface {
	Finder
	Upsert(ctx context.Context, app *Application) error
	Delete(ctx context.Context, id string) error
}
