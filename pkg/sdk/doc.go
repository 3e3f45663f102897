// Package locusmap embeds the locusmap summary and search engine in a Go program.
//
// A Client loads one session (records, node metadata and the cached search
// index) from a blob store, answers summary requests synchronously and serves
// search once the index is ready.
//
//	client, err := locusmap.New(ctx,
//		locusmap.WithLocalDir("./data"),
//		locusmap.WithDataFields(locusmap.FieldSet{
//			Fields: []locusmap.Field{{
//				Name: "factors", Action: "count", Metric: "density", From: "all", GroupBy: "cell",
//			}},
//		}),
//	)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
//	tables, _ := client.Summaries(ctx, []string{"m1", "m2"})
//
//	if err := client.WaitIndex(ctx); err == nil {
//		hits, _ := client.Search(ctx, "sox*", 10)
//	}
//
// Summaries never wait for the index. Search fails with ErrIndexNotReady until
// the cached index was loaded or rebuilt.
package locusmap
