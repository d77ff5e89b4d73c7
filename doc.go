// Package appkit is a small application bootstrap framework.
//
// An application is described by a Blueprint: a Go type with a name, a
// version and optional phase bodies. appkit keeps exactly one Application
// per blueprint type and drives it through a fixed lifecycle:
//
//	create → init_app → configure → run → shutdown
//
// Extensions observe and augment the lifecycle through paired pre and post
// hooks on every phase after create. Hooks fire in registration order on
// both sides of a phase body, and post hooks receive the body's result.
//
//	type Service struct {
//		appkit.Base
//	}
//
//	func (*Service) Name() string    { return "svc" }
//	func (*Service) Version() string { return "1.0" }
//
//	func (s *Service) Create(app *appkit.Application) error {
//		app.RegisterExtension(phaselog.New())
//		return nil
//	}
//
//	func (s *Service) Run(ctx context.Context, app *appkit.Application) (appkit.Result, error) {
//		return nil, serve(ctx)
//	}
//
//	func main() {
//		app, err := appkit.Instance[Service]()
//		if err != nil {
//			log.Fatal(err)
//		}
//		if err := app.Main(context.Background()); err != nil {
//			log.Fatal(err)
//		}
//	}
package appkit
