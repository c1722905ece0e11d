//go:build darwin && cgo

package darwin

/*
#cgo CFLAGS: -x objective-c
#cgo LDFLAGS: -framework AppKit -framework ApplicationServices -framework CoreGraphics -framework CoreFoundation -framework Foundation
#import <AppKit/AppKit.h>
#include <ApplicationServices/ApplicationServices.h>
#include <stdlib.h>
#include <string.h>

// Maps an AX window to its CGWindowID. Private, but stable since 10.5.
extern AXError _AXUIElementGetWindow(AXUIElementRef element, CGWindowID *out);

typedef struct {
    int id;
    int pid;
    int layer;
    int onscreen;
    int x, y, width, height;
    char *title;
} cg_window;

typedef struct {
    int id;
    int parent;
    char *role;
    char *name;
    char *value;
    int x, y, width, height;
    int focused;
    char *actions;
} ax_entry;

static char *cf_to_cstr(CFStringRef s) {
    if (!s) return NULL;
    CFIndex len = CFStringGetLength(s);
    CFIndex max = CFStringGetMaximumSizeForEncoding(len, kCFStringEncodingUTF8) + 1;
    char *buf = malloc(max);
    if (!CFStringGetCString(s, buf, max, kCFStringEncodingUTF8)) {
        free(buf);
        return NULL;
    }
    return buf;
}

static int fill_window(CFDictionaryRef d, cg_window *out) {
    memset(out, 0, sizeof(*out));
    CFNumberRef n = CFDictionaryGetValue(d, kCGWindowNumber);
    if (!n) return -1;
    CFNumberGetValue(n, kCFNumberIntType, &out->id);
    n = CFDictionaryGetValue(d, kCGWindowOwnerPID);
    if (n) CFNumberGetValue(n, kCFNumberIntType, &out->pid);
    n = CFDictionaryGetValue(d, kCGWindowLayer);
    if (n) CFNumberGetValue(n, kCFNumberIntType, &out->layer);
    CFBooleanRef on = CFDictionaryGetValue(d, kCGWindowIsOnscreen);
    out->onscreen = on && CFBooleanGetValue(on);
    CFDictionaryRef b = CFDictionaryGetValue(d, kCGWindowBounds);
    CGRect r;
    if (b && CGRectMakeWithDictionaryRepresentation(b, &r)) {
        out->x = (int)r.origin.x;
        out->y = (int)r.origin.y;
        out->width = (int)r.size.width;
        out->height = (int)r.size.height;
    }
    out->title = cf_to_cstr(CFDictionaryGetValue(d, kCGWindowName));
    return 0;
}

// Layer-0 windows front to back. pid 0 lists every application.
static int cg_list_windows(int pid, cg_window **out, int *count) {
    CFArrayRef list = CGWindowListCopyWindowInfo(
        kCGWindowListOptionAll | kCGWindowListExcludeDesktopElements, kCGNullWindowID);
    if (!list) return -1;
    CFIndex n = CFArrayGetCount(list);
    cg_window *ws = calloc(n > 0 ? n : 1, sizeof(cg_window));
    int k = 0;
    for (CFIndex i = 0; i < n; i++) {
        cg_window w;
        if (fill_window(CFArrayGetValueAtIndex(list, i), &w) != 0) continue;
        if (w.layer != 0 || (pid != 0 && w.pid != pid)) {
            free(w.title);
            continue;
        }
        ws[k++] = w;
    }
    CFRelease(list);
    *out = ws;
    *count = k;
    return 0;
}

static void cg_free_windows(cg_window *ws, int count) {
    for (int i = 0; i < count; i++) free(ws[i].title);
    free(ws);
}

static int cg_window_info(int id, cg_window *out) {
    CFArrayRef list = CGWindowListCopyWindowInfo(kCGWindowListOptionIncludingWindow, (CGWindowID)id);
    if (!list) return -1;
    int rc = -1;
    if (CFArrayGetCount(list) > 0) {
        rc = fill_window(CFArrayGetValueAtIndex(list, 0), out);
        if (rc == 0 && out->id != id) {
            free(out->title);
            rc = -1;
        }
    }
    CFRelease(list);
    return rc;
}

static int ns_frontmost_pid(void) {
    @autoreleasepool {
        NSRunningApplication *app = [[NSWorkspace sharedWorkspace] frontmostApplication];
        return app ? (int)app.processIdentifier : 0;
    }
}

// Frontmost on-screen layer-0 window of pid, or 0.
static int cg_front_window(int pid) {
    CFArrayRef list = CGWindowListCopyWindowInfo(
        kCGWindowListOptionOnScreenOnly | kCGWindowListExcludeDesktopElements, kCGNullWindowID);
    if (!list) return 0;
    int id = 0;
    for (CFIndex i = 0; i < CFArrayGetCount(list) && id == 0; i++) {
        cg_window w;
        if (fill_window(CFArrayGetValueAtIndex(list, i), &w) != 0) continue;
        if (w.layer == 0 && w.pid == pid) id = w.id;
        free(w.title);
    }
    CFRelease(list);
    return id;
}

static int ns_activate(int pid) {
    @autoreleasepool {
        NSRunningApplication *app = [NSRunningApplication runningApplicationWithProcessIdentifier:pid];
        if (!app) return -1;
        [app unhide];
        return [app activateWithOptions:NSApplicationActivateIgnoringOtherApps] ? 0 : -1;
    }
}

static AXUIElementRef ax_window(int pid, int id) {
    AXUIElementRef app = AXUIElementCreateApplication(pid);
    CFArrayRef windows = NULL;
    AXUIElementRef found = NULL;
    if (AXUIElementCopyAttributeValue(app, kAXWindowsAttribute, (CFTypeRef *)&windows) == kAXErrorSuccess && windows) {
        for (CFIndex i = 0; i < CFArrayGetCount(windows); i++) {
            AXUIElementRef w = CFArrayGetValueAtIndex(windows, i);
            CGWindowID wid = 0;
            if (_AXUIElementGetWindow(w, &wid) == kAXErrorSuccess && (int)wid == id) {
                found = (AXUIElementRef)CFRetain(w);
                break;
            }
        }
        CFRelease(windows);
    }
    CFRelease(app);
    return found;
}

static char *ax_string_attr(AXUIElementRef el, CFStringRef attr) {
    CFTypeRef v = NULL;
    if (AXUIElementCopyAttributeValue(el, attr, &v) != kAXErrorSuccess || !v) return NULL;
    char *s = NULL;
    if (CFGetTypeID(v) == CFStringGetTypeID()) s = cf_to_cstr((CFStringRef)v);
    CFRelease(v);
    return s;
}

static int ax_bool_attr(AXUIElementRef el, CFStringRef attr) {
    CFTypeRef v = NULL;
    if (AXUIElementCopyAttributeValue(el, attr, &v) != kAXErrorSuccess || !v) return 0;
    int b = CFGetTypeID(v) == CFBooleanGetTypeID() && CFBooleanGetValue((CFBooleanRef)v);
    CFRelease(v);
    return b;
}

static char *ax_window_title(int pid, int id) {
    AXUIElementRef w = ax_window(pid, id);
    if (!w) return NULL;
    char *t = ax_string_attr(w, kAXTitleAttribute);
    CFRelease(w);
    return t;
}

// 1 when minimized, 0 when not, -1 when the window has no AX element.
static int ax_minimized(int pid, int id) {
    AXUIElementRef w = ax_window(pid, id);
    if (!w) return -1;
    int m = ax_bool_attr(w, kAXMinimizedAttribute);
    CFRelease(w);
    return m;
}

static int ax_unminimize(int pid, int id) {
    AXUIElementRef w = ax_window(pid, id);
    if (!w) return -1;
    AXError err = AXUIElementSetAttributeValue(w, kAXMinimizedAttribute, kCFBooleanFalse);
    CFRelease(w);
    return err == kAXErrorSuccess ? 0 : -1;
}

static int ax_raise(int pid, int id) {
    AXUIElementRef w = ax_window(pid, id);
    if (!w) return -1;
    AXError err = AXUIElementPerformAction(w, kAXRaiseAction);
    CFRelease(w);
    return err == kAXErrorSuccess ? 0 : -1;
}

static int ax_focus_window(int pid, int id) {
    AXUIElementRef w = ax_window(pid, id);
    if (!w) return -1;
    AXUIElementRef app = AXUIElementCreateApplication(pid);
    AXUIElementSetAttributeValue(app, kAXFrontmostAttribute, kCFBooleanTrue);
    CFRelease(app);
    AXUIElementSetAttributeValue(w, kAXMainAttribute, kCFBooleanTrue);
    AXError err = AXUIElementSetAttributeValue(w, kAXFocusedAttribute, kCFBooleanTrue);
    AXUIElementPerformAction(w, kAXRaiseAction);
    CFRelease(w);
    return err == kAXErrorSuccess ? 0 : -1;
}

static void ax_fill(AXUIElementRef el, ax_entry *e) {
    e->role = ax_string_attr(el, kAXRoleAttribute);
    e->name = ax_string_attr(el, kAXTitleAttribute);
    if (!e->name || !e->name[0]) {
        free(e->name);
        e->name = ax_string_attr(el, kAXDescriptionAttribute);
    }
    e->value = ax_string_attr(el, kAXValueAttribute);
    e->focused = ax_bool_attr(el, kAXFocusedAttribute);

    CFTypeRef v = NULL;
    CGPoint p;
    CGSize s;
    if (AXUIElementCopyAttributeValue(el, kAXPositionAttribute, &v) == kAXErrorSuccess && v) {
        if (AXValueGetValue((AXValueRef)v, kAXValueCGPointType, &p)) {
            e->x = (int)p.x;
            e->y = (int)p.y;
        }
        CFRelease(v);
    }
    v = NULL;
    if (AXUIElementCopyAttributeValue(el, kAXSizeAttribute, &v) == kAXErrorSuccess && v) {
        if (AXValueGetValue((AXValueRef)v, kAXValueCGSizeType, &s)) {
            e->width = (int)s.width;
            e->height = (int)s.height;
        }
        CFRelease(v);
    }

    CFArrayRef names = NULL;
    if (AXUIElementCopyActionNames(el, &names) == kAXErrorSuccess && names) {
        @autoreleasepool {
            NSString *joined = [(__bridge NSArray *)names componentsJoinedByString:@","];
            e->actions = strdup([joined UTF8String]);
        }
        CFRelease(names);
    }
}

typedef struct {
    ax_entry *entries;
    int count;
    int cap;
    int stop_at;
    AXUIElementRef hit;
} ax_walk_state;

// Depth-first walk numbering elements from 1. With stop_at set the walk
// only counts and retains the element carrying that number.
static void ax_walk(AXUIElementRef el, int parent, int depth, int max_depth, ax_walk_state *st) {
    if (st->hit || st->count >= st->cap) return;
    int id = st->count + 1;
    ax_entry *e = &st->entries[st->count++];
    memset(e, 0, sizeof(*e));
    e->id = id;
    e->parent = parent;
    if (st->stop_at == id) {
        st->hit = (AXUIElementRef)CFRetain(el);
        return;
    }
    if (st->stop_at == 0) ax_fill(el, e);
    if (depth >= max_depth) return;

    CFArrayRef children = NULL;
    if (AXUIElementCopyAttributeValue(el, kAXChildrenAttribute, (CFTypeRef *)&children) != kAXErrorSuccess || !children) return;
    for (CFIndex i = 0; i < CFArrayGetCount(children); i++) {
        ax_walk(CFArrayGetValueAtIndex(children, i), id, depth + 1, max_depth, st);
    }
    CFRelease(children);
}

static int ax_read_elements(int pid, int wid, int max_depth, int cap, ax_entry **out, int *count) {
    AXUIElementRef w = ax_window(pid, wid);
    if (!w) return -1;
    ax_walk_state st = {calloc(cap, sizeof(ax_entry)), 0, cap, 0, NULL};
    ax_walk(w, 0, 0, max_depth, &st);
    CFRelease(w);
    *out = st.entries;
    *count = st.count;
    return 0;
}

static void ax_free_entry(ax_entry *e) {
    free(e->role);
    free(e->name);
    free(e->value);
    free(e->actions);
}

static void ax_free_elements(ax_entry *es, int count) {
    for (int i = 0; i < count; i++) ax_free_entry(&es[i]);
    free(es);
}

// -1 no window, -2 no such element, -3 the action was refused.
static int ax_perform_action(int pid, int wid, int max_depth, int cap, int id, const char *action) {
    AXUIElementRef w = ax_window(pid, wid);
    if (!w) return -1;
    ax_walk_state st = {calloc(cap, sizeof(ax_entry)), 0, cap, id, NULL};
    ax_walk(w, 0, 0, max_depth, &st);
    CFRelease(w);
    free(st.entries);
    if (!st.hit) return -2;

    AXError err;
    if (strcmp(action, "focus") == 0) {
        err = AXUIElementSetAttributeValue(st.hit, kAXFocusedAttribute, kCFBooleanTrue);
    } else {
        CFStringRef a = CFStringCreateWithCString(NULL, action, kCFStringEncodingUTF8);
        err = AXUIElementPerformAction(st.hit, a);
        CFRelease(a);
    }
    CFRelease(st.hit);
    return err == kAXErrorSuccess ? 0 : -3;
}

static int ax_focused_element(int pid, ax_entry *out) {
    AXUIElementRef app = AXUIElementCreateApplication(pid);
    CFTypeRef el = NULL;
    AXError err = AXUIElementCopyAttributeValue(app, kAXFocusedUIElementAttribute, &el);
    CFRelease(app);
    if (err != kAXErrorSuccess || !el) return -1;
    memset(out, 0, sizeof(*out));
    ax_fill((AXUIElementRef)el, out);
    out->focused = 1;
    CFRelease(el);
    return 0;
}
*/
import "C"

import (
	"fmt"
	"strings"
	"unsafe"

	"github.com/mj1618/desktop-escalate/internal/model"
)

const (
	maxTreeDepth    = 40
	maxTreeElements = 4000
)

// cgWindow is one entry of the window server's list.
type cgWindow struct {
	id       int
	pid      int
	onscreen bool
	title    string
	rect     model.Rect
}

func toWindow(cw C.cg_window) cgWindow {
	x, y := int(cw.x), int(cw.y)
	return cgWindow{
		id:       int(cw.id),
		pid:      int(cw.pid),
		onscreen: cw.onscreen != 0,
		title:    C.GoString(cw.title),
		rect:     model.Rect{Left: x, Top: y, Right: x + int(cw.width), Bottom: y + int(cw.height)},
	}
}

func listWindows(pid int) ([]cgWindow, error) {
	var cWindows *C.cg_window
	var cCount C.int
	if C.cg_list_windows(C.int(pid), &cWindows, &cCount) != 0 {
		return nil, fmt.Errorf("failed to enumerate windows")
	}
	defer C.cg_free_windows(cWindows, cCount)

	count := int(cCount)
	out := make([]cgWindow, 0, count)
	for _, cw := range unsafe.Slice(cWindows, count) {
		out = append(out, toWindow(cw))
	}
	return out, nil
}

func windowInfo(id int) (cgWindow, bool) {
	var cw C.cg_window
	if C.cg_window_info(C.int(id), &cw) != 0 {
		return cgWindow{}, false
	}
	defer C.free(unsafe.Pointer(cw.title))
	return toWindow(cw), true
}

func frontmostPID() int { return int(C.ns_frontmost_pid()) }

func frontWindow(pid int) int { return int(C.cg_front_window(C.int(pid))) }

func activateApp(pid int) error {
	if C.ns_activate(C.int(pid)) != 0 {
		return fmt.Errorf("failed to activate app with PID %d", pid)
	}
	return nil
}

func axWindowTitle(pid, id int) string {
	t := C.ax_window_title(C.int(pid), C.int(id))
	if t == nil {
		return ""
	}
	defer C.free(unsafe.Pointer(t))
	return C.GoString(t)
}

func axMinimized(pid, id int) (bool, bool) {
	switch C.ax_minimized(C.int(pid), C.int(id)) {
	case 1:
		return true, true
	case 0:
		return false, true
	}
	return false, false
}

func axUnminimize(pid, id int) error {
	if C.ax_unminimize(C.int(pid), C.int(id)) != 0 {
		return fmt.Errorf("failed to restore window %d", id)
	}
	return nil
}

func axRaise(pid, id int) error {
	if C.ax_raise(C.int(pid), C.int(id)) != 0 {
		return fmt.Errorf("failed to raise window %d", id)
	}
	return nil
}

func axFocusWindow(pid, id int) error {
	if C.ax_focus_window(C.int(pid), C.int(id)) != 0 {
		return fmt.Errorf("failed to focus window %d", id)
	}
	return nil
}

// axEntry is one element of a flattened accessibility walk.
type axEntry struct {
	parent int
	elem   model.Element
}

func toEntry(ce C.ax_entry) axEntry {
	var actions []string
	if ce.actions != nil {
		for _, a := range strings.Split(C.GoString(ce.actions), ",") {
			if a != "" {
				actions = append(actions, mapAction(a))
			}
		}
	}
	return axEntry{
		parent: int(ce.parent),
		elem: model.Element{
			ID:      int(ce.id),
			Role:    model.MapRole(C.GoString(ce.role)),
			Name:    C.GoString(ce.name),
			Value:   C.GoString(ce.value),
			Bounds:  [4]int{int(ce.x), int(ce.y), int(ce.width), int(ce.height)},
			Focused: ce.focused != 0,
			Actions: actions,
		},
	}
}

func axReadElements(pid, id int) ([]axEntry, error) {
	var cElements *C.ax_entry
	var cCount C.int
	if C.ax_read_elements(C.int(pid), C.int(id), maxTreeDepth, maxTreeElements, &cElements, &cCount) != 0 {
		return nil, fmt.Errorf("failed to read accessibility tree of window %d", id)
	}
	defer C.ax_free_elements(cElements, cCount)

	count := int(cCount)
	out := make([]axEntry, 0, count)
	for _, ce := range unsafe.Slice(cElements, count) {
		out = append(out, toEntry(ce))
	}
	return out, nil
}

func axPerformAction(pid, window, id int, action string) error {
	cAction := C.CString(action)
	defer C.free(unsafe.Pointer(cAction))
	switch C.ax_perform_action(C.int(pid), C.int(window), maxTreeDepth, maxTreeElements, C.int(id), cAction) {
	case 0:
		return nil
	case -1:
		return fmt.Errorf("window %d has no accessibility element", window)
	case -2:
		return fmt.Errorf("no element %d in window %d", id, window)
	}
	return fmt.Errorf("failed to perform action %q on element %d", action, id)
}

func axFocusedElement(pid int) (model.Element, error) {
	var ce C.ax_entry
	if C.ax_focused_element(C.int(pid), &ce) != 0 {
		return model.Element{}, fmt.Errorf("no focused element in PID %d", pid)
	}
	defer C.ax_free_entry(&ce)
	return toEntry(ce).elem, nil
}
