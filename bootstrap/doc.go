// Package bootstrap wires configuration, storage, upstream clients and services
// into a runnable application. The HTTP server and the CLI share InitServices.
//
// A server process looks like:
//
//	app, err := bootstrap.NewApp(ctx, configPath)
//	if err != nil {
//	    return err
//	}
//	if err := app.Start(ctx); err != nil {
//	    app.Shutdown()
//	    return err
//	}
//	app.WaitForShutdown()
//	app.Shutdown()
//
// Commands that only need the services call InitServices and close the result.
package bootstrap
