// Package gmail is the mail gateway: it forwards list, thread, search, send,
// reply, mark-read, draft and trash operations to the Gmail API on behalf of
// the bearer of an access token, and flattens Gmail's nested MIME payloads
// into EmailRecord values.
//
// A Gateway is created once per process. Each request asks it for a Client
// bound to that request's token:
//
//	gw := gmail.NewGateway(cfg.Gmail, gmail.WithMetrics(metrics))
//	client, err := gw.Client(ctx, accessToken)
//	if err != nil {
//		return err
//	}
//	page, err := client.List(ctx, gmail.ListOptions{MaxResults: 20})
//
// List and search fetch every matched message in full with bounded
// concurrency. A message that fails to load is logged and omitted.
package gmail
