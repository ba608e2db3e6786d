// Package engine provides helpers for working with the modernc.org/sqlite
// driver in this module: opening connections and registering the vec_cosine
// SQL scalar function. It keeps a thin surface so the dataset package and
// tests share the same driver instance.
package engine
