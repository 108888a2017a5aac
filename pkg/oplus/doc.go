// Package oplus is a client for the Oplus building-energy-simulation
// platform.
//
// A Client exposes one record.Endpoint per REST collection and typed models
// on top of them: geometries, floorspaces, obats, weathers, simulation groups
// and their simulations, organizations and projects.
//
// # Long-running operations
//
// Imports, exports and simulation starts are asynchronous on the server. The
// orchestrators in this package start the operation, poll the resulting user
// task at a fixed interval until it finishes and surface a failure as a
// *task.OperationFailedError carrying the server's message verbatim.
//
//	client, err := oplus.New(cfg, oplus.WithLogger(logger))
//	obat, err := client.Obat(ctx, id)
//	xlsx, err := obat.Export(ctx, "xlsx")
//
// Waits are unbounded unless ctx carries a deadline.
package oplus
