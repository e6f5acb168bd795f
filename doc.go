/*Package apex provides an unofficial, standalone API for APEX-family toy quadcopters.

Disclaimer

The package has been developed by observing the traffic between the vendor's
own applications and the drone, and by exercising the two links the drone
exposes. The author(s) accept no responsibility for any damage caused either
to or by the drone when using this software.

Features

The following features have been implemented...
  * Command streaming over the Wi-Fi (TCP/CTP) link and the short-range BLE link
  * A keep-alive transmitter which continually resends the last command so the
    drone never drops into its failsafe hover
  * Asynchronous telemetry decoding (altitude and battery)
  * A data-driven sequence engine for autonomous manoeuvres (loop, rectangle,
    circle, staircase, custom)
  * A safety supervisor which guarantees a hover-then-land frame sequence on
    every termination path, including user interrupt
  * Video stream support (raw H.264 frames)

Concepts

Connection Types

The drone accepts commands over either of two links: a TCP connection on its
own Wi-Fi network, carrying JSON-wrapped control structures, or a short-range
BLE characteristic carrying the same control structure in raw 13-byte form.
Telemetry notifications arrive asynchronously on whichever link is in use.
A Session abstracts the connected link; the rest of the package is identical
for both.

Keep-Alive

The drone lands (or holds a failsafe hover) if it hears nothing for roughly
half a second. Repetition of the last command IS the keep-alive contract:
once connected, a background transmitter resends the current command at a
fixed cadence whether or not the caller has issued anything new.

Funcs vs. Channels

Certain functionality is made available in two forms: single-shot function
calls and streaming (channel) data flows, eg. Telemetry() vs.
StreamTelemetry(). Use whichever paradigm you prefer.

Safety

Always drive shutdown through the SafetySupervisor (or Drone.RequestShutdown).
It overwrites the command state with hover, then land, and only then stops the
transmitter and closes the link. Closing the session before landing must never
happen.

*/
package apex
