// Package canvas provides types, interfaces, and helpers for working with the
// Canvas LMS REST API under its dynamic rate-limit quota.
//
// # Overview
//
// The canvas package defines the wire types (Request, Response), the error
// taxonomy, pagination helpers, the response cache abstraction, and the
// resource tree (Node, Collection) with its dirty-tracking cascade. A concrete
// Client is provided by the canvasclient package, which wires transport,
// quota monitoring, and request scheduling. Most consumers should import
// canvasclient to construct a client and then work through the resource tree
// exposed here.
//
// Getting a client
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/edukit-io/canvas-client/pkg/canvas"
//	  "github.com/edukit-io/canvas-client/pkg/canvasclient"
//	)
//
//	func example() {
//	  ctx := context.Background()
//	  cli, err := canvasclient.New(ctx, &canvas.Config{Subdomain: "myschool"})
//	  if err != nil { log.Fatal(err) }
//	  defer cli.Close()
//
//	  course, err := cli.Courses().GetOneComplete(ctx, "42")
//	  if err != nil { log.Fatal(err) }
//	  course.SetTitle("Renamed")
//	  if err := course.Update(ctx); err != nil { log.Fatal(err) }
//	}
//
// # Scheduling and quota
//
// Every call, including each page of a paginated list, passes through a
// scheduler that keeps outbound volume under the server-reported remaining
// quota. Callers only ever see the effect as latency; quota handling is not
// part of any method's error surface unless retries are exhausted.
//
// # The resource tree
//
// Nodes track the last-synchronized field snapshot and send their current
// field set only when it has diverged. Update on a node cascades through its
// child collections, so one call pushes an arbitrary set of nested edits and
// re-invoking it after a partial failure retries only what is still dirty.
//
// # Errors
//
// Terminal API failures are represented by APIError, which carries the
// method, URL, status, and response body. Helpers such as IsNotFound,
// IsUnauthorized, and IsClientError make it easy to branch on common cases.
package canvas
