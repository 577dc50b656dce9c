/*
Package client is for reading MIDI input from go programs.

It automatically uses a running netkeyerd bridge, if one is available;
if it isn't, it opens the input devices in-process through the same
engine stack the bridge uses.

Hardware MIDI goes through rtmidi, so the usual platform backends apply
(CoreMIDI on macOS, ALSA on Linux, WinMM on Windows). UDP emulated ports
work everywhere and need no hardware at all.

Note that if a bridge is running on the local computer, in-process
access is skipped entirely, including UDP emulator ports configured
with AddUDPPort.
*/
package client
