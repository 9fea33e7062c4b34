// Package watcher turns filesystem activity in the watch directory into
// queued jobs. It combines inotify events with a periodic rescan so missed
// events never strand a folder, and debounces bursts so a folder being
// copied in settles before its file list is snapshotted.
package watcher
