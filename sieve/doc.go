// Package sieve finds primes with a chain of concurrent filter stages.
//
// A generator writes the candidates 2, 3, 4, ... into a stream. Each stage
// reads the first value of its input stream, which is prime, keeps it as
// its base, and forwards every later value not divisible by the base to a
// fresh output stream. The Driver grows the chain one stage at a time: the
// base of each new stage is the next prime.
//
//	d := sieve.NewDriver(2, 36)
//	defer d.Close()
//	for {
//	    p, ok, err := d.Next(ctx)
//	    if err != nil || !ok {
//	        break
//	    }
//	    fmt.Println("prime", p)
//	}
//
// Every stage and the generator run in their own goroutine. The Driver owns
// all of them: Close cancels whatever is still running, releases the head
// stream and waits for every goroutine, so no unit or stream outlives it.
//
// Run wraps the loop above with a sink and an optional limit, and Primes
// exposes the chain as a lazy pipeline.Pipeline.
package sieve
