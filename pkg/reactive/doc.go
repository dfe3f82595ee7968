// Package reactive provides the signal graph behind fbind's change notifier.
//
// A Signal holds a value. An Effect runs a function and records every signal
// read during that run as a dependency; when any dependency changes the
// effect runs again, synchronously, on the goroutine that wrote the signal.
// Effects belong to an Owner, and disposing the Owner stops them all.
//
//	owner := reactive.NewOwner(nil)
//	name := reactive.NewSignal("Sam")
//
//	reactive.WithOwner(owner, func() {
//	    reactive.CreateEffect(func() reactive.Cleanup {
//	        fmt.Println("hello", name.Get())
//	        return nil
//	    })
//	})
//	// hello Sam
//
//	name.Set("Kim")
//	// hello Kim
//
//	owner.Dispose()
//	name.Set("Lee") // nothing printed
//
// Dependency tracking is per goroutine: reads on one goroutine never subscribe
// an effect running on another.
package reactive
