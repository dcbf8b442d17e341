// Package notify builds the outbound payload handed to a human operator
// channel when a conversation is escalated. Delivery itself belongs to the
// Gateway implementation; retries and acknowledgements are out of scope.
package notify
