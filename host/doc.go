// Package host runs an interpreter loaded from a shared library inside the
// Go process.
//
// A Process admits one interpreter library at a time. Its Runtime owns a
// dedicated, locked OS thread on which every guest call runs; Runtime.Do
// hands that thread a job together with a Session, the only way to reach
// the guest. Entering a job acquires the execution token and gives the
// guest its signal dispositions; leaving it gives both back, on every exit
// path.
//
//	rt, err := host.Start(ctx, "/usr/lib/libpython3.11.so")
//	if err != nil {
//	    return err
//	}
//	defer rt.Close()
//
//	err = rt.Do(ctx, func(s *host.Session) error {
//	    mod, err := s.LoadModule("filter.py")
//	    ...
//	})
package host
