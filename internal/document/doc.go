// Package document owns the replicated text buffer together with the
// annotation list and inline format list anchored to it.
//
// # Atomic changes
//
// All mutation goes through Document.Change. The change function receives a
// Tx that operates on private copies of the current state; the copies are
// committed only if the function returns nil. An error or panic leaves the
// document exactly as it was and produces no diff.
//
//	diff, err := doc.Change(func(tx *document.Tx) error {
//		if err := tx.InsertText(0, "2 cups flour"); err != nil {
//			return err
//		}
//		tx.Store().Add(annotation.TypeIngredient, tx.Span(0, 12), nil)
//		return nil
//	})
//
// # Observation
//
// Every committed change that altered something yields a Diff: a list of
// patches over the document's fields (text, annotations, formats). Observers
// receive (diff, before, after) synchronously, in commit order, after the
// change is committed. Observers may call Change themselves; nested changes
// are delivered after the current notification finishes. A panicking
// observer is logged and does not affect other observers.
//
// # Thread Safety
//
// Document is safe for concurrent use. States handed to observers and
// returned by Document.State are immutable snapshots.
package document
