// Package language normalises the feed language setting to BCP 47.
package language
