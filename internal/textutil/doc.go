// Package textutil provides filename sanitisation and title helpers.
//
// SafeFileName turns an arbitrary episode title into a portable file name:
// compatibility decomposition folds ligatures and full-width forms, combining
// marks are stripped so accented letters keep their base letter, and
// filesystem-unsafe characters are replaced.
package textutil
