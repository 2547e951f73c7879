// Package component defines lifecycle-managed parts of the primes service
// and the registry that starts them in order and stops them in reverse.
//
// # Interfaces
//
//   - Component: Name/Start/Stop/Health
//   - Describable: startup summary line
//   - RouteProvider: registered HTTP routes for the startup summary
package component
