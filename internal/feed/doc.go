// Package feed reads the source podcast feed, downloads new episodes, and
// writes the cleaned feed.
//
// Only the RSS 2.0 subset podcast hosts actually emit is handled: channel
// metadata plus item title, guid, pubDate, and the first enclosure. Items
// without an enclosure carry no audio and are ignored.
package feed
