// Package main hosts the podclean CLI entrypoint and command graph.
//
// Commands fall into two groups. clean and scan work on local files and only
// need the detection settings. run, feed, history, and doctor operate on the
// configured feed, ledger, and output directories. Configuration is resolved
// once per invocation by commandContext and handed to the internal packages;
// no command keeps global state.
package main
