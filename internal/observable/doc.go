// Package observable provides reference targets for the history engine:
// a named-property Object and an ordered List, both reporting their changes
// synchronously to subscribers.
//
// Subscriptions are explicit handles. Cancelling one stops delivery
// immediately, including for a change that is being delivered to other
// subscribers at that moment.
package observable
